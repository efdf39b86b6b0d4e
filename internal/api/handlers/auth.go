package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	apierrors "github.com/koustreak/entfiles/internal/api/errors"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        userResponse `json:"user"`
}

// Login handles POST /api/auth/login. A body that is not a JSON object is
// treated as an empty one and fails validation.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	_ = json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req)

	res, err := h.login.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		apierrors.Respond(w, h.logger(r), err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: res.AccessToken,
		ExpiresAt:   res.ExpiresAt.UTC(),
		User: userResponse{
			ID:    res.User.ID,
			Email: res.User.Email,
			Name:  res.User.Name,
			Role:  string(res.User.Role),
		},
	})
}
