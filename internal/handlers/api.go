package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/catalog"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/settings"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/store"
)

const maxBodyBytes = 1 << 20

const actorKey contextKey = "actor"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields under their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct returns one message per invalid field, or nil.
func validateStruct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"": err.Error()}
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = formatValidationError(fe)
	}
	return details
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	default:
		return fmt.Sprintf("Validation failed on %s", fe.Tag())
	}
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// errorStatus maps a domain error to an HTTP status and a message that is
// safe to show to the operator.
func errorStatus(err error) (int, string) {
	var verr *catalog.ValidationError
	var extErr *catalog.ExternalServiceError
	var perr *settings.PersistenceError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, settings.ErrInvalidValue):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, catalog.ErrConfigurationMissing):
		return http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &extErr):
		if extErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound, extErr.Message
		}
		return http.StatusBadGateway, extErr.Message
	case errors.As(err, &perr):
		return http.StatusInternalServerError, "could not save settings"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// APIHandler serves the JSON API used by scripts and the browser alike.
type APIHandler struct {
	Catalog      *catalog.Service
	Settings     *settings.Manager
	Store        *store.Store
	SessionStore *sessions.CookieStore
	Tokens       *TokenIssuer
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("API request failed", "request_id", RequestID(r.Context()), "path", r.URL.Path, "status", status, "error", err)
	} else {
		slog.Warn("API request rejected", "request_id", RequestID(r.Context()), "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, msg)
}

// Auth accepts a logged-in admin session or, when tokens are enabled, a
// bearer token.
func (h *APIHandler) Auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if raw := bearerToken(r); raw != "" {
			username, err := h.Tokens.Verify(raw)
			if err != nil {
				slog.Warn("Rejected API token", "request_id", RequestID(r.Context()), "error", err)
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), actorKey, "api:"+username)))
			return
		}

		session, _ := h.SessionStore.Get(r, sessionName)
		if auth, ok := session.Values["authenticated"].(bool); !ok || !auth {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		username, _ := session.Values["username"].(string)
		next(w, r.WithContext(context.WithValue(r.Context(), actorKey, username)))
	}
}

func actorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey).(string); ok && a != "" {
		return a
	}
	return "unknown"
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &catalog.ValidationError{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

func (h *APIHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Settings.Credentials())
}

func (h *APIHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var creds settings.Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		h.fail(w, r, err)
		return
	}
	if details := validateStruct(creds); details != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing required fields", Details: details})
		return
	}

	if err := h.Settings.Update(creds); err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Store.RecordActivity(&models.Activity{
		Kind:    models.ActivitySettingsUpdate,
		BaseURL: creds.BaseURL,
		Actor:   actorFrom(r.Context()),
	}); err != nil {
		slog.Error("Failed to record activity", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Settings updated successfully"})
}

func (h *APIHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := models.SearchQueryFromValues(r.URL.Query())
	products, err := h.Catalog.Search(r.Context(), query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &catalog.ValidationError{Field: "id", Message: "must be a positive integer"}
	}
	return id, nil
}

func (h *APIHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	product, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// UpdateProduct replaces the product with the request body. The id in the
// path wins over any id in the body.
func (h *APIHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var product models.Product
	if err := decodeJSON(w, r, &product); err != nil {
		h.fail(w, r, err)
		return
	}
	if details := validateStruct(product); details != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Missing required fields", Details: details})
		return
	}

	updated, err := h.Catalog.Update(r.Context(), id, product)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.Store.RecordActivity(&models.Activity{
		Kind:        models.ActivityProductUpdate,
		ProductID:   updated.ID,
		ProductSKU:  updated.SKU,
		ProductName: updated.Name,
		Actor:       actorFrom(r.Context()),
	}); err != nil {
		slog.Error("Failed to record activity", "error", err)
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *APIHandler) SupplierData(w http.ResponseWriter, r *http.Request) {
	draft, err := h.Catalog.SupplierDraft(r.Context(), r.PathValue("sku"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}
