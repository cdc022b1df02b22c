package jwt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/user"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager("test-secret-key", time.Hour)
}

func authFrame(t *testing.T, token string) []byte {
	t.Helper()
	frame, err := json.Marshal(ClientAuthMessage{Type: "auth", Token: "Bearer " + token})
	require.NoError(t, err)
	return frame
}

func TestValidateWSAuth_Valid(t *testing.T) {
	mgr := testManager(t)
	token, _, err := mgr.IssueUserToken("u1", user.DefaultCapabilities().Strings())
	require.NoError(t, err)

	identity, err := ValidateWSAuth(authFrame(t, token), mgr)
	require.NoError(t, err)

	assert.Equal(t, "u1", identity.UserID)
	assert.True(t, identity.Capabilities.Has(user.CapLocationUpdate))
	assert.True(t, identity.Capabilities.Has(user.CapLocationShare))
}

func TestValidateWSAuth_PermissionsPreserved(t *testing.T) {
	mgr := testManager(t)
	token, _, err := mgr.IssueUserToken("u1", []string{string(user.CapLocationUpdate)})
	require.NoError(t, err)

	identity, err := ValidateWSAuth(authFrame(t, token), mgr)
	require.NoError(t, err)

	assert.True(t, identity.Capabilities.Has(user.CapLocationUpdate))
	assert.False(t, identity.Capabilities.Has(user.CapRideCreate))
}

func TestValidateWSAuth_BadFrames(t *testing.T) {
	mgr := testManager(t)
	token, _, err := mgr.IssueUserToken("u1", nil)
	require.NoError(t, err)

	_, err = ValidateWSAuth([]byte("not json"), mgr)
	assert.ErrorIs(t, err, ErrBadAuthMsg)

	frame, _ := json.Marshal(ClientAuthMessage{Type: "hello", Token: "Bearer " + token})
	_, err = ValidateWSAuth(frame, mgr)
	assert.ErrorIs(t, err, ErrBadAuthMsg)

	frame, _ = json.Marshal(ClientAuthMessage{Type: "auth", Token: token})
	_, err = ValidateWSAuth(frame, mgr)
	assert.ErrorIs(t, err, ErrBadTokenWrap)
}

func TestValidateWSAuth_WrongSecret(t *testing.T) {
	other := NewManager("another-secret", time.Hour)
	token, _, err := other.IssueUserToken("u1", nil)
	require.NoError(t, err)

	_, err = ValidateWSAuth(authFrame(t, token), testManager(t))
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestManager_ExpiredToken(t *testing.T) {
	mgr := NewManager("test-secret-key", -time.Minute)
	token, _, err := mgr.IssueUserToken("u1", nil)
	require.NoError(t, err)

	_, err = mgr.ParseAndValidate(token)
	assert.Error(t, err)
}
