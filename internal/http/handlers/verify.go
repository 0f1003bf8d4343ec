package handlers

import (
	"encoding/json"
	"net/http"

	"toolgate/internal/access"
	"toolgate/internal/middleware"
)

type verifyRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

type verifyResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	NewExpiry int64  `json:"new_expiry,omitempty"`
}

// Verify redeems an unlock token for a user. Expected rejections (unknown
// token, already used, wrong user, expired, no ledger entry) answer 200 with
// success=false and the reason's plain-language message; only infrastructure
// faults answer 500, with a generic message.
func (a *App) Verify(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, verifyResponse{Success: false, Message: missingParamsMessage(locale)})
		return
	}
	if req.UserID == "" || req.Token == "" {
		a.json(w, http.StatusBadRequest, verifyResponse{Success: false, Message: missingParamsMessage(locale)})
		return
	}

	receipt, err := a.Access.Redeem(r.Context(), req.UserID, req.Token)
	if err != nil {
		if access.IsDeny(err) {
			a.json(w, http.StatusOK, verifyResponse{Success: false, Message: access.DenyMessage(err, locale)})
			return
		}
		a.json(w, http.StatusInternalServerError, verifyResponse{Success: false, Message: access.DenyMessage(err, locale)})
		return
	}

	a.json(w, http.StatusOK, verifyResponse{
		Success:   true,
		Message:   access.GrantMessage(a.Access.GrantWindow(), locale),
		NewExpiry: receipt.NewExpiry.UnixMilli(),
	})
}

func missingParamsMessage(locale string) string {
	if locale == "id" {
		return "Parameter tidak lengkap"
	}
	return "Missing parameters"
}
