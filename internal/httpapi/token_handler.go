package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/carvalholeo/sistema-caronas-sub000/internal/domain/user"
)

type tokenRequest struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

type tokenResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
	Permissions []string  `json:"permissions"`
}

// ----- Handler: POST /tokens -----
//
// Development convenience for issuing signed tokens locally. Permissions
// default to the full capability set when omitted.
func (handler *Handler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req tokenRequest
	if !handler.decodeStrict(ctx, w, r, 256<<10, &req) {
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "user_id is required", errors.New("missing user_id"))
		return
	}

	perms := req.Permissions
	if len(perms) == 0 {
		perms = user.DefaultCapabilities().Strings()
	}

	token, claims, err := handler.auth.IssueUserToken(req.UserID, perms)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "Failed to generate token", err)
		return
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": req.UserID})

	handler.jsonResponse(ctx, w, http.StatusCreated, tokenResponse{
		Token:       token,
		ExpiresAt:   claims.ExpiresAt.Time,
		UserID:      req.UserID,
		Permissions: perms,
	})
}
