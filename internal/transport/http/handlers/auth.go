package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/auth-service/internal/errors"
	"github.com/pribylovaa/auth-service/internal/models"
)

type registerResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// RegisterUser — POST /users.
func (h *Handlers) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.Register(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message:      "user created",
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// LoginUser — POST /auth/login.
func (h *Handlers) LoginUser(w http.ResponseWriter, r *http.Request) {
	var in models.LoginInput
	if err := decodeStrict(w, r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	pair, err := h.svc.Login(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// Logout — POST /auth/logout. Успешен и без токена.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Logout(r.Context(), r.Header.Get("Authorization")); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// RefreshToken — POST /auth/refresh, refresh-токен в Authorization.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	pair, err := h.svc.Refresh(r.Context(), r.Header.Get("Authorization"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pair)
}

// GetProfile — GET /users/{username}, за RequireAccess.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
