package handlers

import (
	"errors"
	"net/http"
	"time"

	"toolgate/internal/domain"
)

type accessStatusResponse struct {
	UserID           string `json:"user_id"`
	Entitled         bool   `json:"entitled"`
	AccessExpiry     int64  `json:"access_expiry"`
	AccessCount      int64  `json:"access_count"`
	ToolsUsed        int64  `json:"tools_used"`
	LastUsed         int64  `json:"last_used,omitempty"`
	LastAccessUnlock int64  `json:"last_access_unlock,omitempty"`
}

// AccessStatus returns the caller's current ledger entry. Reading the
// status never mutates it.
func (a *App) AccessStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}

	rec, err := a.Access.Status(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "User not found")
			return
		}
		a.Logger.Error().Err(err).Str("user_id", userID).Msg("load access status failed")
		a.error(w, http.StatusInternalServerError, "internal", "try again later")
		return
	}

	a.json(w, http.StatusOK, accessStatusResponse{
		UserID:           rec.UserID,
		Entitled:         rec.Entitled(time.Now()),
		AccessExpiry:     rec.AccessExpiry.UnixMilli(),
		AccessCount:      rec.AccessCount,
		ToolsUsed:        rec.ToolsUsed,
		LastUsed:         epochMillisOrZero(rec.LastUsed),
		LastAccessUnlock: epochMillisOrZero(rec.LastAccessUnlock),
	})
}

// epochMillisOrZero hides the 'epoch' storage default for never-touched
// timestamps instead of reporting 0 ms as a real instant.
func epochMillisOrZero(t time.Time) int64 {
	if t.IsZero() || t.Unix() == 0 {
		return 0
	}
	return t.UnixMilli()
}
