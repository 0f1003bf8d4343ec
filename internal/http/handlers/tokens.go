package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
)

type issueTokenRequest struct {
	UserID string `json:"user_id"`
}

type issueTokenResponse struct {
	Token     string `json:"token"`
	UserID    string `json:"user_id"`
	ExpiresAt int64  `json:"expires_at"`
}

// IssueToken mints a single-use unlock token. The endpoint is called by the
// ad-flow callback, not by end users, and is guarded by a static issuer key.
func (a *App) IssueToken(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("X-Issuer-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(a.Config.IssuerKey)) != 1 {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid issuer key")
		return
	}

	var req issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.UserID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "user_id required")
		return
	}

	tok, err := a.Access.IssueToken(r.Context(), req.UserID)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", req.UserID).Msg("issue token failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to issue token")
		return
	}

	a.json(w, http.StatusCreated, issueTokenResponse{
		Token:     tok.Token,
		UserID:    tok.UserID,
		ExpiresAt: tok.ExpiresAt.UnixMilli(),
	})
}
