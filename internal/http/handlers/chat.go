package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"toolgate/internal/domain"
	"toolgate/internal/providers/chat"
)

type chatRequest struct {
	Messages  []chat.Message `json:"messages"`
	MaxTokens int            `json:"max_tokens"`
}

type chatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
}

// ChatComplete relays a conversation to the AI provider for an entitled
// user. The entitlement gate runs before the relay; usage is recorded only
// after the upstream call succeeded.
func (a *App) ChatComplete(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	if _, err := a.Access.Authorize(r.Context(), userID); err != nil {
		a.denyOrFail(w, err)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if len(req.Messages) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "messages array required")
		return
	}

	if a.Chat == nil {
		a.Logger.Error().Msg("chat provider not configured")
		a.error(w, http.StatusInternalServerError, "internal", "AI provider not configured")
		return
	}

	reply, err := a.Chat.Complete(r.Context(), req.Messages, req.MaxTokens)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("chat relay failed")
		a.error(w, http.StatusBadGateway, "upstream", "AI service error")
		return
	}

	if err := a.Access.RecordUsage(r.Context(), userID); err != nil {
		// The privileged call already succeeded; metering is best-effort.
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("record usage failed")
	}

	a.json(w, http.StatusOK, chatResponse{Success: true, Response: reply})
}

// denyOrFail translates entitlement-gate outcomes to HTTP: no ledger entry
// is 404, an expired window is 403 and anything else is an infrastructure
// fault.
func (a *App) denyOrFail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, domain.ErrAccessExpired):
		a.error(w, http.StatusForbidden, "access_expired", "Access expired")
	default:
		a.Logger.Error().Err(err).Msg("entitlement check failed")
		a.error(w, http.StatusInternalServerError, "internal", "try again later")
	}
}
