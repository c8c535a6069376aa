package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"retail-sales/logger"
	"retail-sales/middleware"
	"retail-sales/models"
	"retail-sales/services"
	"retail-sales/store"
	"retail-sales/utils"
)

type fakeSales struct {
	page *models.ResultPage
	err  error
	got  models.FilterRequest
}

func (f *fakeSales) GetSales(_ context.Context, req models.FilterRequest) (*models.ResultPage, error) {
	f.got = req
	return f.page, f.err
}

type fixedOptions models.FilterOptions

func (f fixedOptions) FilterOptions(context.Context) models.FilterOptions {
	return models.FilterOptions(f)
}

type pingFunc func(context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

type memUsers struct {
	mu      sync.Mutex
	pingErr error
	byEmail map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]*models.User{}}
}

func (m *memUsers) Ping(context.Context) error { return m.pingErr }

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := m.byEmail[email]; ok {
		return store.ErrUserExists
	}
	u.Email = email
	u.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cp := *u
	m.byEmail[email] = &cp
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func decode(t *testing.T, r io.Reader) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.NewDecoder(r).Decode(&m))
	return m
}

func TestGetSales_OK(t *testing.T) {
	svc := &fakeSales{page: &models.ResultPage{
		Data:       []models.SalesRecord{},
		Pagination: services.PageInfo(0, 2, 5),
	}}
	app := fiber.New()
	app.Get("/api/sales", GetSales(svc, logger.NewTestLogger(t)))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/sales?page=2&pageSize=5&regions=North", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp.Body)
	assert.Contains(t, body, "data")
	assert.Contains(t, body, "pagination")
	assert.Contains(t, body, "summary")
	assert.Equal(t, 2, svc.got.Page)
	assert.Equal(t, []string{"North"}, svc.got.Filters.Regions)
}

func TestGetSales_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"store down", fmt.Errorf("find: %w", services.ErrStoreUnavailable), http.StatusServiceUnavailable, "Database connection unavailable"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/api/sales", GetSales(&fakeSales{err: tt.err}, logger.NewTestLogger(t)))

			resp, err := app.Test(httptest.NewRequest("GET", "/api/sales", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantError, decode(t, resp.Body)["error"])
		})
	}
}

func TestGetFilters(t *testing.T) {
	app := fiber.New()
	app.Get("/api/sales/filters", GetFilters(fixedOptions(models.EmptyFilterOptions())))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/sales/filters", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp.Body)
	for _, key := range []string{"regions", "genders", "categories", "tags", "paymentMethods"} {
		assert.Equal(t, []interface{}{}, body[key], key)
	}
}

func TestHealth(t *testing.T) {
	for _, tt := range []struct {
		name string
		ping error
		want string
	}{
		{"up", nil, "up"},
		{"down", services.ErrStoreUnavailable, "down"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", Health(pingFunc(func(context.Context) error { return tt.ping })))

			resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			body := decode(t, resp.Body)
			assert.Equal(t, "ok", body["status"])
			assert.Equal(t, "Retail Sales API is running", body["message"])
			assert.Equal(t, tt.want, body["store"])
		})
	}
}

func newAuthApp(t *testing.T, users UserStore) (*fiber.App, *utils.TokenIssuer) {
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)
	auth := NewAuth(users, tokens, logger.NewTestLogger(t))
	auth.hashCost = bcrypt.MinCost

	app := fiber.New()
	app.Post("/auth/signup", auth.Signup)
	app.Post("/auth/login", auth.Login)
	app.Get("/auth/me", middleware.JWTMiddleware(tokens), auth.Me)
	return app, tokens
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestAuth_SignupLoginMe(t *testing.T) {
	app, tokens := newAuthApp(t, newMemUsers())

	resp := postJSON(t, app, "/auth/signup", `{"name":"Neha","email":"Neha@Example.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	signup := decode(t, resp.Body)
	token, _ := signup["token"].(string)
	require.NotEmpty(t, token)

	user := signup["user"].(map[string]interface{})
	assert.Equal(t, "Neha", user["name"])
	assert.Equal(t, "neha@example.com", user["email"])
	assert.NotContains(t, user, "PasswordHash")

	userID, err := tokens.ParseJWTToken(token)
	require.NoError(t, err)
	assert.Equal(t, user["id"], userID)

	resp = postJSON(t, app, "/auth/login", `{"email":"neha@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decode(t, resp.Body)
	assert.NotEmpty(t, login["token"])

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login["token"].(string))
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decode(t, resp.Body)["user"].(map[string]interface{})
	assert.Equal(t, userID, me["id"])
}

func TestAuth_SignupRejects(t *testing.T) {
	users := newMemUsers()
	app, _ := newAuthApp(t, users)
	require.Equal(t, http.StatusCreated,
		postJSON(t, app, "/auth/signup", `{"name":"A","email":"a@example.com","password":"secret1"}`).StatusCode)

	tests := []struct {
		name, body, wantError string
	}{
		{"missing name", `{"email":"b@example.com","password":"secret1"}`, "Name, email, and password are required"},
		{"blank email", `{"name":"B","email":"  ","password":"secret1"}`, "Name, email, and password are required"},
		{"bad email", `{"name":"B","email":"nope","password":"secret1"}`, "Invalid email format"},
		{"short password", `{"name":"B","email":"b@example.com","password":"123"}`, "Password must be at least 6 characters"},
		{"duplicate", `{"name":"A","email":"A@example.com","password":"secret1"}`, "User already exists with this email"},
		{"not json", `{`, "Invalid input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, app, "/auth/signup", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.wantError, decode(t, resp.Body)["error"])
		})
	}
}

func TestAuth_LoginRejects(t *testing.T) {
	app, _ := newAuthApp(t, newMemUsers())
	require.Equal(t, http.StatusCreated,
		postJSON(t, app, "/auth/signup", `{"name":"A","email":"a@example.com","password":"secret1"}`).StatusCode)

	resp := postJSON(t, app, "/auth/login", `{"email":"a@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Email and password are required", decode(t, resp.Body)["error"])

	for _, body := range []string{
		`{"email":"a@example.com","password":"wrong-one"}`,
		`{"email":"ghost@example.com","password":"secret1"}`,
	} {
		resp := postJSON(t, app, "/auth/login", body)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid credentials", decode(t, resp.Body)["error"])
	}
}

func TestAuth_StoreUnavailable(t *testing.T) {
	users := newMemUsers()
	users.pingErr = services.ErrStoreUnavailable
	app, _ := newAuthApp(t, users)

	for _, path := range []string{"/auth/signup", "/auth/login"} {
		resp := postJSON(t, app, path, `{"name":"A","email":"a@example.com","password":"secret1"}`)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
		assert.Equal(t, "Database connection unavailable", decode(t, resp.Body)["error"])
	}
}

func TestAuth_MeUnknownUser(t *testing.T) {
	app, tokens := newAuthApp(t, newMemUsers())
	token, err := tokens.GenerateJWTToken("ghost")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("x-auth-token", token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
