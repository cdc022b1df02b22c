package jwt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/user"
)

var (
	ErrBadAuthMsg           = errors.New("invalid auth message")
	ErrBadTokenWrap         = errors.New("token must be 'Bearer <token>'")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// ClientAuthMessage is what clients send first over WS:
// { "type":"auth", "token":"Bearer <jwt>" }
type ClientAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// Identity is the verified outcome of a websocket auth frame: the ephemeral
// connection identity the gateway attaches to the connection.
type Identity struct {
	UserID       string
	Capabilities user.CapabilitySet
}

// ValidateWSAuth parses the first auth frame and validates the JWT. The
// gateway rejects the connection when this fails; no events are processed
// for an unauthenticated connection.
func ValidateWSAuth(frame []byte, mgr *Manager) (*Identity, error) {
	var msg ClientAuthMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, ErrBadAuthMsg
	}

	if strings.ToLower(strings.TrimSpace(msg.Type)) != "auth" {
		return nil, ErrBadAuthMsg
	}

	// expect "Bearer <token>" wrapping
	parts := strings.SplitN(msg.Token, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ErrBadTokenWrap
	}

	claims, err := mgr.ParseAndValidate(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	return &Identity{
		UserID:       claims.Subject,
		Capabilities: claims.Capabilities(),
	}, nil
}
