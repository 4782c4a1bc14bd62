package httpserver

import (
	"errors"
	"net/http"

	"taskhub/internal/auth"
	"taskhub/internal/store"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=supervisor operator"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *handlers) handleRegister(w http.ResponseWriter, req *http.Request) {
	var body registerRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "name, email, password and role are required")
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.deps.Store.CreateUser(body.Name, body.Email, hash, body.Role)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		h.logger.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := auth.SignUserToken(h.deps.JWTSecret, user.ID, user.Role, auth.DefaultTokenTTL)
	if err != nil {
		h.logger.Error("token sign failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"token": token, "user": user})
}

func (h *handlers) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body loginRequest
	if err := decodeJSON(req, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.deps.Store.GetUserByEmail(body.Email)
	if err != nil {
		h.logger.Error("login lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil || !auth.VerifyPassword(user.PasswordHash, body.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.SignUserToken(h.deps.JWTSecret, user.ID, user.Role, auth.DefaultTokenTTL)
	if err != nil {
		h.logger.Error("token sign failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}
