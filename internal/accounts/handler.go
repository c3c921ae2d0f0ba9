package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/Abhijeet1005/SartiaProject/internal/platform/httpx"
	"github.com/Abhijeet1005/SartiaProject/internal/view"
)

// Admission control on the forgot-password path: 4 requests per client
// address per hour.
const (
	forgotPasswordLimit  = 4
	forgotPasswordWindow = time.Hour
)

// HandlerConfig carries the cookie settings the handler needs.
type HandlerConfig struct {
	CookieName   string
	SecureCookie bool
	SessionTTL   time.Duration
}

// Handler wires the JSON account API.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	middleware *Middleware
	templates  *view.Engine
	validator  *validator.Validate
	cfg        HandlerConfig
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, middleware *Middleware, templates *view.Engine, cfg HandlerConfig) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		service:    service,
		middleware: middleware,
		templates:  templates,
		validator:  validator.New(),
		cfg:        cfg,
	}
}

// MountRoutes registers the account API on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.With(httprate.Limit(forgotPasswordLimit, forgotPasswordWindow, httprate.WithKeyFuncs(httprate.KeyByIP))).
		Post("/forgot-password", h.forgotPassword)
	r.Get("/new-password", h.showNewPasswordForm)
	r.Post("/new-password", h.applyNewPassword)

	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireSession)
		r.Post("/logout", h.logout)
		r.Post("/change-password", h.changePassword)
		r.Get("/current-user", h.currentUser)

		r.Group(func(r chi.Router) {
			r.Use(h.middleware.RequireAdmin)
			r.Get("/all-users", h.allUsers)
			r.Post("/activation-toggle", h.activationToggle)
		})
	})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if IsUnexpected(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

type registerRequest struct {
	FullName string `json:"fullname" validate:"required"`
	Email    string `json:"email" validate:"required,contains=@"`
	Password string `json:"password" validate:"required"`
	Profile  string `json:"profile"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, ErrMissingFields)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, registerValidationError(err))
		return
	}

	user, err := h.service.Register(r.Context(), RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Profile:  req.Profile,
	})
	if err != nil {
		h.respondError(w, "register", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user.Public())
}

// registerValidationError maps validator failures onto the operation failure
// taxonomy: a bad email format is InvalidEmail, anything else MissingFields.
func registerValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Field() == "Email" && fe.Tag() == "contains" {
				return ErrInvalidEmail
			}
		}
	}
	return ErrMissingFields
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password"`
}

type loginResponse struct {
	User        PublicUser `json:"user"`
	AccessToken string     `json:"accessToken"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, ErrLoginMissingEmail)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, ErrLoginMissingEmail)
		return
	}

	user, signed, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(w, "login", err)
		return
	}

	http.SetCookie(w, h.sessionCookie(signed, time.Now().Add(h.cfg.SessionTTL)))
	httpx.JSON(w, http.StatusOK, loginResponse{User: user.Public(), AccessToken: signed})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	claims := SessionClaimsFromContext(r.Context())
	if err := h.service.Logout(r.Context(), claims); err != nil {
		h.respondError(w, "logout", err)
		return
	}

	expired := h.sessionCookie("", time.Unix(0, 0))
	expired.MaxAge = -1
	http.SetCookie(w, expired)

	user := IdentityFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "logged out successfully",
		"user":    user.Public(),
	})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	user := IdentityFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, user.Public())
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, ErrMissingFields)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, ErrMissingFields)
		return
	}

	user := IdentityFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		h.respondError(w, "change password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

func (h *Handler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, ErrMissingEmail)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, ErrMissingEmail)
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		h.respondError(w, "forgot password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "email sent successfully"})
}

// showNewPasswordForm renders the form linked from the reset email, with the
// presented token embedded so the browser posts it back.
func (h *Handler) showNewPasswordForm(w http.ResponseWriter, r *http.Request) {
	data := view.TemplateData{
		Title: "Set a new password",
		Data:  map[string]any{"Token": r.URL.Query().Get("token")},
	}
	if err := h.templates.Render(w, "pages/new-password.html", data); err != nil {
		h.logger.Error("render new-password", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

type newPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

func (h *Handler) applyNewPassword(w http.ResponseWriter, r *http.Request) {
	var req newPasswordRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		// The rendered form posts urlencoded.
		if err := r.ParseForm(); err != nil {
			httpx.RespondError(w, ErrMissingFields)
			return
		}
		req.Password = r.PostFormValue("password")
	} else if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, ErrMissingFields)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, ErrMissingFields)
		return
	}

	if err := h.service.ApplyNewPassword(r.Context(), r.URL.Query().Get("token"), req.Password); err != nil {
		h.respondError(w, "apply new password", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
}

func (h *Handler) allUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.respondError(w, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, PublicUsers(users))
}

type activationToggleRequest struct {
	Email string `json:"email" validate:"required"`
}

func (h *Handler) activationToggle(w http.ResponseWriter, r *http.Request) {
	var req activationToggleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, ErrMissingEmail)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, ErrMissingEmail)
		return
	}

	user, err := h.service.ToggleActivation(r.Context(), req.Email)
	if err != nil {
		h.respondError(w, "activation toggle", err)
		return
	}
	status := "activated"
	if !user.IsActive {
		status = "deactivated"
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"message": "user " + status + " successfully",
		"user":    user.Public(),
	})
}

func (h *Handler) sessionCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.SecureCookie,
		SameSite: http.SameSiteStrictMode,
		Expires:  expires,
	}
}
