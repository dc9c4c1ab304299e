package users

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"med-tracker/internal/middleware"
	"med-tracker/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta registro, confirmación, login y /users/{userID}.
// issuer puede ser nil: en ese caso /auth/login responde 501.
func RegisterRoutes(r chi.Router, svc *Service, issuer auth.Issuer) {
	r.Post("/register", registerHandler(svc))
	r.Get("/register/confirm", confirmHandler(svc))
	r.Post("/auth/login", loginHandler(svc, issuer))

	r.Route("/users/{userID}", func(ur chi.Router) {
		ur.Get("/", getUserHandler(svc))
		ur.Patch("/", updateUserHandler(svc))
		ur.Delete("/", removeUserHandler(svc))
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
}

// registerHandler godoc
// @Summary Registrar usuario
// @Description Crea la cuenta deshabilitada y envía un email con el link de confirmación (válido 24h).
// @Tags users
// @Accept json
// @Produce json
// @Param payload body credentialsRequest true "Email y password (8-64 caracteres)"
// @Success 201 {object} userResponse
// @Failure 400 {string} string "invalid json / input inválido"
// @Failure 409 {string} string "email already in use"
// @Router /register [post]
func registerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		u, err := svc.Register(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toUserResponse(u))
	}
}

// confirmHandler godoc
// @Summary Confirmar email
// @Tags users
// @Produce json
// @Param token query string true "Token de confirmación"
// @Success 200 {object} userResponse
// @Failure 400 {string} string "token inválido / cuenta ya activa"
// @Failure 404 {string} string "user not found"
// @Failure 410 {string} string "confirmation token expired"
// @Router /register/confirm [get]
func confirmHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := svc.Confirm(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// loginHandler godoc
// @Summary Login
// @Description Devuelve un bearer token para usar en Authorization.
// @Tags users
// @Accept json
// @Produce json
// @Param payload body credentialsRequest true "Credenciales"
// @Success 200 {object} loginResponse
// @Failure 401 {string} string "invalid credentials"
// @Failure 403 {string} string "account not verified"
// @Router /auth/login [post]
func loginHandler(svc *Service, issuer auth.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if issuer == nil {
			http.Error(w, "login not configured", http.StatusNotImplemented)
			return
		}

		var req credentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		u, err := svc.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			writeError(w, err)
			return
		}

		token, exp, err := issuer.Issue(r.Context(), auth.Claims{UserID: u.ID, Email: u.Email})
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, UserID: u.ID})
	}
}

// getUserHandler godoc
// @Summary Obtener mi usuario
// @Tags users
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param userID path string true "ID del usuario (debe ser el propio)"
// @Success 200 {object} userResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden / account not verified"
// @Failure 404 {string} string "user not found"
// @Router /users/{userID} [get]
func getUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := selfOnly(w, r)
		if !ok {
			return
		}

		u, err := svc.Get(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// updateUserHandler godoc
// @Summary Actualizar mi usuario
// @Tags users
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param userID path string true "ID del usuario"
// @Param payload body updateUserRequest true "Campos a modificar"
// @Success 200 {object} userResponse
// @Failure 400 {string} string "invalid json / input inválido"
// @Failure 403 {string} string "forbidden"
// @Failure 409 {string} string "email already in use"
// @Router /users/{userID} [patch]
func updateUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := selfOnly(w, r)
		if !ok {
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()

		var req updateUserRequest
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		u, err := svc.Update(r.Context(), id, UpdateInput{Email: req.Email, Password: req.Password})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// removeUserHandler godoc
// @Summary Borrar mi cuenta
// @Description Borra la cuenta y todas sus medicaciones.
// @Tags users
// @Produce json
// @Param Authorization header string false "Bearer token"
// @Param userID path string true "ID del usuario"
// @Success 200 {object} userResponse
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "user not found"
// @Router /users/{userID} [delete]
func removeUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := selfOnly(w, r)
		if !ok {
			return
		}

		u, err := svc.Remove(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toUserResponse(u))
	}
}

// selfOnly exige auth y que {userID} sea el usuario autenticado.
func selfOnly(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	id := chi.URLParam(r, "userID")
	if id != claims.UserID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", false
	}
	return id, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInvalidCredentials):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, ErrNotVerified):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	case errors.Is(err, ErrDuplicate):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrTokenExpired):
		http.Error(w, err.Error(), http.StatusGone)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Enabled:   u.Enabled,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
