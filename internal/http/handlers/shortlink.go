package handlers

import (
	"encoding/json"
	"net/http"
)

type shortlinkRequest struct {
	URL    string `json:"url"`
	UserID string `json:"user_id"`
}

type shortlinkResponse struct {
	Success  bool   `json:"success"`
	ShortURL string `json:"short_url"`
}

// ShortenLink relays a URL to the shortener for an entitled user. The
// presented user id must match the credential's subject.
func (a *App) ShortenLink(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	var req shortlinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.URL == "" || req.UserID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "url and user_id required")
		return
	}
	if req.UserID != userID {
		a.error(w, http.StatusForbidden, "forbidden", "user mismatch")
		return
	}

	if _, err := a.Access.Authorize(r.Context(), userID); err != nil {
		a.denyOrFail(w, err)
		return
	}

	if a.Shortener == nil {
		a.Logger.Error().Msg("shortlink provider not configured")
		a.error(w, http.StatusInternalServerError, "internal", "shortlink provider not configured")
		return
	}

	short, err := a.Shortener.Shorten(r.Context(), req.URL)
	if err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("shortlink relay failed")
		a.error(w, http.StatusBadGateway, "upstream", "Shortlink failed")
		return
	}

	if err := a.Access.RecordUsage(r.Context(), userID); err != nil {
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("record usage failed")
	}

	a.json(w, http.StatusOK, shortlinkResponse{Success: true, ShortURL: short})
}
