package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Abhijeet1005/SartiaProject/internal/view"
)

// PagesHandler serves the server-rendered HTML pages for the browser flows.
type PagesHandler struct {
	logger     *slog.Logger
	service    *Service
	middleware *Middleware
	templates  *view.Engine
}

// NewPagesHandler constructs a PagesHandler.
func NewPagesHandler(logger *slog.Logger, service *Service, middleware *Middleware, templates *view.Engine) *PagesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PagesHandler{logger: logger, service: service, middleware: middleware, templates: templates}
}

// MountRoutes registers the page routes at the router root.
func (h *PagesHandler) MountRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	r.Get("/login", h.page("Login", "pages/login.html"))
	r.Get("/register", h.page("Register", "pages/register.html"))
	r.Get("/forgot-password", h.page("Forgot password", "pages/forgot-password.html"))

	r.Group(func(r chi.Router) {
		r.Use(h.middleware.RequireSession)
		r.Get("/profile", h.profile)
	})
}

func (h *PagesHandler) page(title, template string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, template, view.TemplateData{Title: title})
	}
}

// profile renders the signed-in user's details; admins additionally see the
// full user list.
func (h *PagesHandler) profile(w http.ResponseWriter, r *http.Request) {
	user := IdentityFromContext(r.Context())

	data := map[string]any{"User": user.Public()}
	if user.Role == RoleAdmin {
		users, err := h.service.ListUsers(r.Context())
		if err != nil {
			h.logger.Error("profile user list", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		data["Users"] = PublicUsers(users)
	}
	h.render(w, "pages/profile.html", view.TemplateData{Title: "Profile", Data: data})
}

func (h *PagesHandler) render(w http.ResponseWriter, template string, data view.TemplateData) {
	if err := h.templates.Render(w, template, data); err != nil {
		h.logger.Error("render page", slog.String("template", template), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
