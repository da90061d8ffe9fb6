package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/catalog"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/settings"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/store"
)

const sessionName = "admin-session"

type AdminHandler struct {
	Store        *store.Store
	SessionStore *sessions.CookieStore
	Templates    *TemplateCache
	Catalog      *catalog.Service
	Settings     *settings.Manager
}

// page collects the data every template expects and consumes pending flashes.
func (h *AdminHandler) page(r *http.Request, session *sessions.Session, title string) map[string]interface{} {
	auth, _ := session.Values["authenticated"].(bool)
	return map[string]interface{}{
		"Title":     title,
		"LoggedIn":  auth,
		"CsrfField": csrf.TemplateField(r),
		"Flashes":   GetFlash(session),
	}
}

func (h *AdminHandler) flash(w http.ResponseWriter, r *http.Request, session *sessions.Session, kind, msg, to string) {
	session.AddFlash(FlashMessage{Type: kind, Message: msg})
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// actor names the logged-in user for the activity log.
func (h *AdminHandler) actor(session *sessions.Session) string {
	if name, ok := session.Values["username"].(string); ok && name != "" {
		return name
	}
	return "unknown"
}

func (h *AdminHandler) LoginGet(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)
	data := h.page(r, session, "Sign in")
	data["LoggedIn"] = false
	session.Save(r, w)
	h.Templates.Render(w, "login.html", data)
}

func (h *AdminHandler) LoginPost(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)

	username := r.FormValue("username")
	password := r.FormValue("password")

	user, err := h.Store.GetUserByUsername(username)
	if err != nil {
		slog.Error("Failed to look up user", "username", username, "error", err)
		h.flash(w, r, session, "error", "Internal Server Error", "/login")
		return
	}

	if user == nil {
		h.flash(w, r, session, "error", "Invalid username or password", "/login")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		h.flash(w, r, session, "error", "Invalid username or password", "/login")
		return
	}

	// Set authenticated session
	session.Values["authenticated"] = true
	session.Values["user_id"] = user.ID
	session.Values["username"] = user.Username
	session.Options.Path = "/"
	session.AddFlash(FlashMessage{Type: "success", Message: "Welcome, " + user.Username + "!"})

	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	slog.Info("Login successful, redirecting to /admin", "user_id", user.ID)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)
	session.Values["authenticated"] = false
	delete(session.Values, "username")
	session.Options.MaxAge = -1 // Expire immediately
	session.Save(r, w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// AuthMiddleware ensures the user is logged in
func (h *AdminHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, _ := h.SessionStore.Get(r, sessionName)
		if auth, ok := session.Values["authenticated"].(bool); !ok || !auth {
			slog.Debug("AuthMiddleware: User not authenticated, redirecting to /login", "path", r.URL.Path)
			h.flash(w, r, session, "error", "You must be logged in to access this page.", "/login")
			return
		}
		next(w, r)
	}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Store.GetDashboardStats()
	if err != nil {
		slog.Error("Failed to load dashboard stats", "error", err)
		http.Error(w, "Error fetching stats", http.StatusInternalServerError)
		return
	}

	session, _ := h.SessionStore.Get(r, sessionName)
	creds := h.Settings.Credentials()
	data := h.page(r, session, "Dashboard")
	data["Stats"] = stats
	data["Configured"] = creds.Complete()
	data["BaseURL"] = creds.BaseURL
	session.Save(r, w) // Save session to clear flashes
	h.Templates.Render(w, "admin.html", data)
}

func (h *AdminHandler) recordActivity(a *models.Activity) {
	if err := h.Store.RecordActivity(a); err != nil {
		slog.Error("Failed to record activity", "kind", a.Kind, "error", err)
	}
}
