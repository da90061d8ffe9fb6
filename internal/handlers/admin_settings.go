package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/settings"
)

func (h *AdminHandler) SettingsForm(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)
	creds := h.Settings.Credentials()
	data := h.page(r, session, "API settings")
	data["Credentials"] = creds
	data["Configured"] = creds.Complete()
	session.Save(r, w)
	h.Templates.Render(w, "settings.html", data)
}

// UpdateSettings saves the submitted credentials. A blank secret keeps the
// current one.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	session, _ := h.SessionStore.Get(r, sessionName)

	creds := settings.Credentials{
		BaseURL:        strings.TrimSpace(r.FormValue("woocommerceUrl")),
		ConsumerKey:    strings.TrimSpace(r.FormValue("consumerKey")),
		ConsumerSecret: r.FormValue("consumerSecret"),
	}
	if creds.ConsumerSecret == "" {
		creds.ConsumerSecret = h.Settings.Credentials().ConsumerSecret
	}

	if details := validateStruct(creds); details != nil {
		for field, msg := range details {
			session.AddFlash(FlashMessage{Type: "error", Message: field + ": " + msg})
		}
		session.Save(r, w)
		http.Redirect(w, r, "/admin/settings", http.StatusSeeOther)
		return
	}

	if err := h.Settings.Update(creds); err != nil {
		msg := "Could not save settings: " + err.Error()
		var perr *settings.PersistenceError
		if errors.As(err, &perr) {
			msg = "Could not save settings. The previous settings are still in effect."
		}
		h.flash(w, r, session, "error", msg, "/admin/settings")
		return
	}

	h.recordActivity(&models.Activity{
		Kind:    models.ActivitySettingsUpdate,
		BaseURL: creds.BaseURL,
		Actor:   h.actor(session),
	})
	slog.Info("Settings saved from admin UI", "actor", h.actor(session))
	h.flash(w, r, session, "success", "Settings saved.", "/admin/settings")
}
