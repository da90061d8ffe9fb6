package handlers

import (
	"net/http"
)

// NewRouter registers every route. Middleware that wraps the whole mux
// (logging, headers, CSRF) is applied by the caller.
func NewRouter(admin *AdminHandler, api *APIHandler, loginLimiter *RateLimiter) *http.ServeMux {
	mux := http.NewServeMux()

	// Static Files
	mux.Handle("GET /static/", http.FileServerFS(Assets))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
	})

	mux.HandleFunc("GET /login", admin.LoginGet)
	mux.HandleFunc("POST /login", loginLimiter.Middleware(admin.LoginPost))
	mux.HandleFunc("/logout", admin.Logout)

	// Protected Routes
	mux.HandleFunc("GET /admin", admin.AuthMiddleware(admin.Dashboard))
	mux.HandleFunc("GET /admin/products", admin.AuthMiddleware(admin.SearchProducts))
	mux.HandleFunc("GET /admin/products/edit", admin.AuthMiddleware(admin.EditProductForm))
	mux.HandleFunc("POST /admin/products/update", admin.AuthMiddleware(admin.UpdateProduct))
	mux.HandleFunc("GET /admin/settings", admin.AuthMiddleware(admin.SettingsForm))
	mux.HandleFunc("POST /admin/settings", admin.AuthMiddleware(admin.UpdateSettings))

	// JSON API
	mux.HandleFunc("GET /api/settings", api.Auth(api.GetSettings))
	mux.HandleFunc("POST /api/settings", api.Auth(api.UpdateSettings))
	mux.HandleFunc("GET /api/products", api.Auth(api.SearchProducts))
	mux.HandleFunc("GET /api/products/{id}", api.Auth(api.GetProduct))
	mux.HandleFunc("PUT /api/products/{id}", api.Auth(api.UpdateProduct))
	mux.HandleFunc("GET /api/supplier/{sku}", api.Auth(api.SupplierData))

	return mux
}
