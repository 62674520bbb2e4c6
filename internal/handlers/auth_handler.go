package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Glaucio24/Redtea/internal/models"
	"github.com/Glaucio24/Redtea/internal/services"
)

// AuthHandler serves the dev-mode auth endpoints. In production the
// identity provider owns sign-up and sign-in; these routes exist so the
// API can run without it.
type AuthHandler struct {
	auth          *services.AuthService
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAuthHandler(auth *services.AuthService, jwtSecret string, jwtExpiration time.Duration) *AuthHandler {
	return &AuthHandler{
		auth:          auth,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	user, err := h.auth.Register(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrEmailExists) {
			writeJSON(w, http.StatusConflict, models.NewErrorResponse("Email already registered"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to create user"))
		return
	}

	token, err := h.generateToken(user.SubjectID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to generate token"))
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(models.AuthResponse{
		Token: token,
		User:  *user,
	}))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return
	}

	user, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) || errors.Is(err, services.ErrInvalidPassword) {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid email or password"))
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Login failed"))
		return
	}

	token, err := h.generateToken(user.SubjectID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to generate token"))
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(models.AuthResponse{
		Token: token,
		User:  *user,
	}))
}

func (h *AuthHandler) generateToken(subjectID string) (string, error) {
	claims := jwt.MapClaims{
		"sub": subjectID,
		"exp": time.Now().Add(h.jwtExpiration).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.jwtSecret))
}
