package handlers

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/catalog"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/models"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/settings"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/store"
	"github.com/TriAlliance/sb1-xbshc9-TriShop/internal/supplier"
)

var validCreds = settings.Credentials{
	BaseURL:        "https://shop.test",
	ConsumerKey:    "ck_test_12345678",
	ConsumerSecret: "cs_test_12345678",
}

type fakeCatalog struct {
	mu        sync.Mutex
	products  []models.Product
	searchErr error
	updateErr error

	searches []url.Values
	updates  []models.Product
}

func (f *fakeCatalog) Search(_ context.Context, params url.Values) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, params)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]models.Product(nil), f.products...), nil
}

func (f *fakeCatalog) Get(_ context.Context, id int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &catalog.ExternalServiceError{StatusCode: http.StatusNotFound, Code: "woocommerce_rest_product_invalid_id", Message: "Invalid ID."}
}

func (f *fakeCatalog) Update(_ context.Context, id int64, p models.Product) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	f.updates = append(f.updates, p)
	for i := range f.products {
		if f.products[i].ID == id {
			f.products[i] = p
		}
	}
	return &p, nil
}

func (f *fakeCatalog) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searches)
}

type memPersister struct {
	mu    sync.Mutex
	saved settings.Credentials
	err   error
}

func (m *memPersister) Load() (settings.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, nil
}

func (m *memPersister) Save(c settings.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = c
	return nil
}

type testEnv struct {
	mux      *http.ServeMux
	store    *store.Store
	catalog  *fakeCatalog
	persist  *memPersister
	settings *settings.Manager
	tokens   *TokenIssuer
}

func newTestEnv(t *testing.T, creds settings.Credentials) *testEnv {
	t.Helper()

	db, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.CreateUser("admin", string(hash)))

	templates := NewTemplateCache()
	require.NoError(t, templates.Load(Assets))

	fc := &fakeCatalog{products: []models.Product{
		{ID: 7, Name: "Mug", SKU: "SKU-7", Price: "9.99", RegularPrice: "9.99", Status: "publish",
			Images: []models.Image{{ID: 70, Src: "https://shop.test/mug.jpg"}}},
		{ID: 8, Name: "Cup", SKU: "SKU-8", Price: "4.50", RegularPrice: "4.50", Status: "draft"},
	}}
	persist := &memPersister{saved: creds}
	manager := settings.NewManager(persist, func(settings.Credentials) (catalog.Client, error) {
		return fc, nil
	}, creds)
	svc := catalog.NewService(manager, supplier.NewMockSource(0, rand.New(rand.NewPCG(1, 2))))

	sessionStore := sessions.NewCookieStore([]byte(strings.Repeat("s", 32)))
	tokens := NewTokenIssuer([]byte(strings.Repeat("t", 32)))
	limiter := NewRateLimiter(rate.Inf, 1)
	t.Cleanup(limiter.Close)

	admin := &AdminHandler{Store: db, SessionStore: sessionStore, Templates: templates, Catalog: svc, Settings: manager}
	api := &APIHandler{Catalog: svc, Settings: manager, Store: db, SessionStore: sessionStore, Tokens: tokens}

	return &testEnv{
		mux:      NewRouter(admin, api, limiter),
		store:    db,
		catalog:  fc,
		persist:  persist,
		settings: manager,
		tokens:   tokens,
	}
}

func (e *testEnv) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (e *testEnv) login(t *testing.T) []*http.Cookie {
	t.Helper()
	rec := e.do(postForm("/login", url.Values{"username": {"admin"}, "password": {"secret"}}), nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/admin", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, validCreds)

	rec := env.do(postForm("/login", url.Values{"username": {"admin"}, "password": {"wrong"}}), nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = env.do(postForm("/login", url.Values{"username": {"nobody"}, "password": {"secret"}}), nil)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	cookies := env.login(t)
	rec = env.do(httptest.NewRequest(http.MethodGet, "/admin", nil), cookies)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Connected to <strong>https://shop.test</strong>")
}

func TestAdminPagesRequireLogin(t *testing.T) {
	env := newTestEnv(t, validCreds)

	for _, path := range []string{"/admin", "/admin/products", "/admin/products/edit?id=7", "/admin/settings"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, path, nil), nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	env := newTestEnv(t, validCreds)
	cookies := env.login(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/logout", nil), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	expired := rec.Result().Cookies()
	require.NotEmpty(t, expired)
	assert.True(t, expired[0].MaxAge < 0)
}

func TestSearchProducts_ShowsResults(t *testing.T) {
	env := newTestEnv(t, validCreds)
	cookies := env.login(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/products?search=1&status=published&minStock=&skus=SKU-7", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Mug")
	assert.Contains(t, body, "/admin/products/edit?id=7")
	assert.NotContains(t, body, "error-region")

	require.Equal(t, 1, env.catalog.searchCount())
	assert.Equal(t, "publish", env.catalog.searches[0].Get("status"))
	assert.Equal(t, "SKU-7", env.catalog.searches[0].Get("sku"))
}

func TestSearchProducts_FormOnlyWithoutSubmit(t *testing.T) {
	env := newTestEnv(t, validCreds)
	cookies := env.login(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/products", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, env.catalog.searchCount())
	assert.NotContains(t, rec.Body.String(), "Mug")
}

func TestSearchProducts_SortOptionsMatchStoreOrderings(t *testing.T) {
	env := newTestEnv(t, validCreds)
	cookies := env.login(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/products?sortBy=slug", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	for _, v := range []string{"date", "id", "include", "title", "slug"} {
		assert.Contains(t, body, `<option value="`+v+`"`)
	}
	for _, v := range []string{"price", "popularity"} {
		assert.NotContains(t, body, `<option value="`+v+`"`)
	}
	assert.Contains(t, body, `<option value="slug" selected>`)
}

func TestSearchProducts_FailureShowsErrorAndNoResults(t *testing.T) {
	env := newTestEnv(t, validCreds)
	env.catalog.searchErr = &catalog.ExternalServiceError{StatusCode: http.StatusUnauthorized, Message: "Invalid signature"}
	cookies := env.login(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/products?search=1&skus=SKU-7", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "error-region")
	assert.Contains(t, body, "Search failed: Invalid signature")
	assert.NotContains(t, body, "Mug")
	assert.Contains(t, body, ">SKU-7</textarea>", "form values are kept")
}

func TestSearchProducts_ValidationErrorSkipsCatalog(t *testing.T) {
	env := newTestEnv(t, validCreds)
	cookies := env.login(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/products?search=1&minPrice=cheap", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "minPrice: must be a number")
	assert.Zero(t, env.catalog.searchCount())
}

func TestSearchProducts_Unconfigured(t *testing.T) {
	env := newTestEnv(t, settings.Credentials{})
	cookies := env.login(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/products?search=1", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "The WooCommerce API is not configured")
	assert.Contains(t, body, "woocommerce credentials are not configured")
}

func TestEditProductForm(t *testing.T) {
	env := newTestEnv(t, validCreds)
	cookies := env.login(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/products/edit?id=7", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Mug"`)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/admin/products/edit?id=404", nil), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/products", rec.Header().Get("Location"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/admin/products/edit?id=abc", nil), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestEditProductForm_SupplierPrefill(t *testing.T) {
	env := newTestEnv(t, validCreds)
	cookies := env.login(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/products/edit?id=7&supplier=1", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Updated Product SKU-7"`)
	assert.Contains(t, body, supplier.ImageURL("SKU-7"))
	assert.Empty(t, env.catalog.updates, "prefill never writes to the store")
}

func TestUpdateProduct_OverwritesThenRedirectsToEdit(t *testing.T) {
	env := newTestEnv(t, validCreds)
	cookies := env.login(t)

	form := url.Values{
		"id":             {"7"},
		"name":           {"Big Mug"},
		"sku":            {"SKU-7"},
		"regular_price":  {"12.00"},
		"status":         {"draft"},
		"manage_stock":   {"1"},
		"stock_quantity": {"3"},
		"images":         {"https://shop.test/mug.jpg\nhttps://cdn.test/new.jpg\n"},
	}
	rec := env.do(postForm("/admin/products/update", form), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/products/edit?id=7", rec.Header().Get("Location"))

	require.Len(t, env.catalog.updates, 1)
	got := env.catalog.updates[0]
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "Big Mug", got.Name)
	assert.Equal(t, "12.00", got.RegularPrice)
	assert.Equal(t, "draft", got.Status)
	assert.True(t, got.ManageStock)
	require.NotNil(t, got.StockQuantity)
	assert.Equal(t, 3, *got.StockQuantity)
	assert.Equal(t, []models.Image{{ID: 70, Src: "https://shop.test/mug.jpg"}, {Src: "https://cdn.test/new.jpg"}}, got.Images)

	recent, err := env.store.RecentActivity(5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, models.ActivityProductUpdate, recent[0].Kind)
	assert.Equal(t, "admin", recent[0].Actor)
}

func TestUpdateProduct_RejectsBadStock(t *testing.T) {
	env := newTestEnv(t, validCreds)
	cookies := env.login(t)

	rec := env.do(postForm("/admin/products/update", url.Values{"id": {"7"}, "name": {"Mug"}, "stock_quantity": {"many"}}), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/products/edit?id=7", rec.Header().Get("Location"))
	assert.Empty(t, env.catalog.updates)
}

func TestUpdateProduct_UpstreamFailure(t *testing.T) {
	env := newTestEnv(t, validCreds)
	env.catalog.updateErr = &catalog.ExternalServiceError{StatusCode: http.StatusBadRequest, Message: "Invalid parameter(s): regular_price"}
	cookies := env.login(t)

	rec := env.do(postForm("/admin/products/update", url.Values{"id": {"7"}, "name": {"Mug"}}), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	recent, err := env.store.RecentActivity(5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestSettingsForm(t *testing.T) {
	env := newTestEnv(t, validCreds)
	cookies := env.login(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin/settings", nil), cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="ck_test_12345678"`)
	assert.NotContains(t, body, "cs_test_12345678")
	assert.Contains(t, body, "****5678")
}

func TestUpdateSettings_BlankSecretKeepsCurrent(t *testing.T) {
	env := newTestEnv(t, validCreds)
	cookies := env.login(t)

	form := url.Values{"woocommerceUrl": {"https://other.test"}, "consumerKey": {"ck_new"}, "consumerSecret": {""}}
	rec := env.do(postForm("/admin/settings", form), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/settings", rec.Header().Get("Location"))

	want := settings.Credentials{BaseURL: "https://other.test", ConsumerKey: "ck_new", ConsumerSecret: validCreds.ConsumerSecret}
	assert.Equal(t, want, env.settings.Credentials())
	assert.Equal(t, want, env.persist.saved)
}

func TestUpdateSettings_PersistenceFailureKeepsPrevious(t *testing.T) {
	env := newTestEnv(t, validCreds)
	env.persist.err = assert.AnError
	cookies := env.login(t)

	form := url.Values{"woocommerceUrl": {"https://other.test"}, "consumerKey": {"ck_new"}, "consumerSecret": {"cs_new"}}
	rec := env.do(postForm("/admin/settings", form), cookies)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, validCreds, env.settings.Credentials())
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, validCreds)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/static/style.css", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}
