package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kooshamoradpour/G5-TechStore/internal/auth"
	"github.com/kooshamoradpour/G5-TechStore/internal/services"
	"github.com/kooshamoradpour/G5-TechStore/internal/store/memory"
	"github.com/kooshamoradpour/G5-TechStore/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memImages map[string][]byte

func (m memImages) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	m[key] = data
	return err
}

func (m memImages) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := m[key]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m memImages) Delete(ctx context.Context, key string) error {
	delete(m, key)
	return nil
}

type testAPI struct {
	t        *testing.T
	router   *chi.Mux
	db       *memory.DB
	accounts *services.AccountService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := memory.New()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	issuer, err := auth.NewIssuer([]byte("handler-secret"), time.Hour)
	require.NoError(t, err)
	log := zerolog.Nop()

	accounts := services.NewAccountService(db.Users(), db.Carts(), hasher, issuer, nil, log)
	catalog := services.NewCatalogService(db.Products(), memImages{}, nil, log)
	cart := services.NewCartService(db.Users(), db.Carts(), nil, log)

	router := chi.NewRouter()
	router.Use(Authenticate(issuer, log))
	router.Get("/healthz", Healthz)
	router.Route("/auth", func(r chi.Router) { AuthRouter(r, accounts, log) })
	router.Route("/products", func(r chi.Router) { ProductRouter(r, catalog, log) })
	router.Route("/cart", func(r chi.Router) { CartRouter(r, cart, log) })

	return &testAPI{t: t, router: router, db: db, accounts: accounts}
}

func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(username, email string) AuthResponse {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/auth/register", "", RegisterRequest{Username: username, Email: email, Password: "hunter2"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp AuthResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (a *testAPI) adminToken() string {
	a.t.Helper()
	a.register("root", "root@x.com")
	_, err := a.accounts.SetAdmin(context.Background(), "root@x.com", true)
	require.NoError(a.t, err)
	rec := a.do(http.MethodPost, "/auth/login", "", LoginRequest{Email: "root@x.com", Password: "hunter2"})
	require.Equal(a.t, http.StatusOK, rec.Code)
	var resp AuthResponse
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealthz(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterLoginMe(t *testing.T) {
	api := newTestAPI(t)

	resp := api.register("alice", "alice@x.com")
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
	assert.NotContains(t, api.do(http.MethodGet, "/auth/me", resp.Token, nil).Body.String(), "password")

	rec := api.do(http.MethodPost, "/auth/register", "", RegisterRequest{Username: "alice2", Email: "alice@x.com", Password: "hunter2"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, services.CodeDuplicateIdentity, decodeError(t, rec).Code)

	rec = api.do(http.MethodPost, "/auth/login", "", LoginRequest{Email: "alice@x.com", Password: "nope!"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, services.CodeInvalidCredentials, decodeError(t, rec).Code)

	rec = api.do(http.MethodGet, "/auth/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, resp.User.ID, me.ID)
}

func TestMeRejectsAnonymousAndBadTokens(t *testing.T) {
	api := newTestAPI(t)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		rec := api.do(http.MethodGet, "/auth/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, services.CodeUnauthenticated, decodeError(t, rec).Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterRejectsBadPayload(t *testing.T) {
	api := newTestAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodPost, "/auth/register", "", RegisterRequest{Username: "bob", Email: "bob", Password: "hunter2"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.CodeInvalidInput, decodeError(t, rec).Code)
}

func TestCartEndpoints(t *testing.T) {
	api := newTestAPI(t)
	product, err := api.db.Products().Create(context.Background(), types.Product{Name: "Keyboard", Price: 50})
	require.NoError(t, err)
	token := api.register("alice", "alice@x.com").Token

	rec := api.do(http.MethodPost, "/cart/items", "", AddCartItemRequest{ProductID: product.ID, Quantity: 1})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/cart/items", token, AddCartItemRequest{ProductID: product.ID, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var user types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	require.Len(t, user.Cart, 1)
	assert.Equal(t, 2, user.Cart[0].Quantity)

	rec = api.do(http.MethodPost, "/cart/items", token, AddCartItemRequest{ProductID: product.ID, Quantity: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.CodeInvalidQuantity, decodeError(t, rec).Code)

	rec = api.do(http.MethodPost, "/cart/items", token, AddCartItemRequest{ProductID: product.ID, Quantity: 1 << 31})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.CodeInvalidQuantity, decodeError(t, rec).Code)

	rec = api.do(http.MethodPatch, "/cart/items/"+product.ID, token, UpdateCartItemRequest{Quantity: 1 << 31})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, services.CodeInvalidQuantity, decodeError(t, rec).Code)

	rec = api.do(http.MethodPatch, "/cart/items/"+product.ID, token, UpdateCartItemRequest{Quantity: 4})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cart CartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	rec = api.do(http.MethodDelete, "/cart/items/"+product.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodDelete, "/cart/items/"+product.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPatch, "/cart/items/"+product.ID, token, UpdateCartItemRequest{Quantity: 4})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, services.CodeLineNotFound, decodeError(t, rec).Code)
}

func TestProductEndpoints(t *testing.T) {
	api := newTestAPI(t)
	userToken := api.register("alice", "alice@x.com").Token
	adminToken := api.adminToken()
	body := CreateProductRequest{Name: "Monitor", Description: "27 inch", Price: 199.99, Stock: 3}

	rec := api.do(http.MethodPost, "/products", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(http.MethodPost, "/products", userToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, services.CodeForbidden, decodeError(t, rec).Code)

	rec = api.do(http.MethodPost, "/products", adminToken, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created types.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = api.do(http.MethodGet, "/products?page=1&per_page=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list ProductListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 10, list.Limit)

	rec = api.do(http.MethodGet, "/products?page=0", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(http.MethodGet, "/products/by-name/Monitor", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodGet, "/products/by-name/Nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(http.MethodGet, "/products/"+created.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = api.do(http.MethodGet, "/products/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProductImageUpload(t *testing.T) {
	api := newTestAPI(t)
	adminToken := api.adminToken()
	product, err := api.db.Products().Create(context.Background(), types.Product{Name: "Mouse", Price: 20})
	require.NoError(t, err)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="mouse.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG-data"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products/"+product.ID+"/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated types.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, services.ImagePath(product.ID), updated.Image)

	rec = api.do(http.MethodGet, "/products/"+product.ID+"/image", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "\x89PNG-data", rec.Body.String())
}

func TestRequestLoggerWritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	h := RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products", nil))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "/products", entry["path"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
}
