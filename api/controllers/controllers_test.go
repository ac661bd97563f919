package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MudassirSafi/Wolf-Backend/internal/auth"
	"github.com/MudassirSafi/Wolf-Backend/internal/catalog"
	"github.com/MudassirSafi/Wolf-Backend/internal/users"
	"github.com/MudassirSafi/Wolf-Backend/pkg/config"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test"})
}

type stubAuthService struct {
	refreshAccess  string
	refreshToken   string
	loggedOutToken string
	loginErr       error
}

func (s *stubAuthService) Register(_ context.Context, req auth.RegisterRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh", User: &users.UserDTO{Email: req.Email}}, nil
}

func (s *stubAuthService) Login(context.Context, auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (s *stubAuthService) Refresh(_ context.Context, accessToken, refreshToken string) (*auth.TokenPair, error) {
	s.refreshAccess = accessToken
	s.refreshToken = refreshToken
	return &auth.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (s *stubAuthService) Logout(_ context.Context, accessToken string) error {
	s.loggedOutToken = accessToken
	return nil
}

func TestAuthRegisterCreated(t *testing.T) {
	body := `{"name":"Sara","email":"sara@example.com","password":"Sup3r-secret!"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	resp := httptest.NewRecorder()

	AuthRegister(&stubAuthService{}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("X-Wolf-Token") != "access" {
		t.Fatal("expected access token header")
	}
}

func TestAuthLoginValidatesBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"not-an-email"}`))
	resp := httptest.NewRecorder()

	AuthLogin(&stubAuthService{}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{loginErr: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"sara@example.com","password":"x"}`))
	resp := httptest.NewRecorder()

	AuthLogin(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRefreshReadsBearerAndBody(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"refresh"}`))
	req.Header.Set("Authorization", "Bearer expired-access")
	resp := httptest.NewRecorder()

	AuthRefresh(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.refreshAccess != "expired-access" || svc.refreshToken != "refresh" {
		t.Fatalf("unexpected tokens forwarded: %q %q", svc.refreshAccess, svc.refreshToken)
	}
}

func TestAuthRefreshRequiresBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"refresh"}`))
	resp := httptest.NewRecorder()

	AuthRefresh(&stubAuthService{}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogoutRevokesBearer(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer access")
	resp := httptest.NewRecorder()

	AuthLogout(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK || svc.loggedOutToken != "access" {
		t.Fatalf("expected logout of bearer token, got %d %q", resp.Code, svc.loggedOutToken)
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	cases := []struct {
		name   string
		db     fakePinger
		cache  fakePinger
		status int
	}{
		{name: "ready", status: http.StatusOK},
		{name: "database down", db: fakePinger{err: errors.New("refused")}, status: http.StatusServiceUnavailable},
		{name: "redis down", cache: fakePinger{err: errors.New("refused")}, status: http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			HealthReady(cfg, tc.db, tc.cache, testLogger()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if resp.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, resp.Code)
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK || resp.Header().Get("X-Wolf-Env") != "test" {
		t.Fatalf("unexpected live response %d", resp.Code)
	}
}

type stubCatalogService struct {
	params  pagination.Params
	created catalog.CreateProductInput
}

func (s *stubCatalogService) Get(_ context.Context, id uuid.UUID) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{ID: id, Name: "Hoodie"}, nil
}

func (s *stubCatalogService) List(_ context.Context, params pagination.Params) (*catalog.ProductListResult, error) {
	s.params = params
	return &catalog.ProductListResult{Items: []catalog.ProductDTO{}}, nil
}

func (s *stubCatalogService) Create(_ context.Context, input catalog.CreateProductInput) (*catalog.AdminProductDTO, error) {
	s.created = input
	return &catalog.AdminProductDTO{ProductDTO: catalog.ProductDTO{ID: uuid.New(), Name: input.Name, Price: input.Price}}, nil
}

func TestProductListDefaultsPaging(t *testing.T) {
	svc := &stubCatalogService{}
	resp := httptest.NewRecorder()
	ProductList(svc, testLogger()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.params.Page != 1 || svc.params.PageSize != pagination.DefaultPageSize {
		t.Fatalf("unexpected params %+v", svc.params)
	}
}

func TestProductListRejectsOversizedPage(t *testing.T) {
	resp := httptest.NewRecorder()
	ProductList(&stubCatalogService{}, testLogger()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products?page_size=1000", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestProductDetailRoutesID(t *testing.T) {
	id := uuid.New()
	router := chi.NewRouter()
	router.Get("/api/v1/products/{productId}", ProductDetail(&stubCatalogService{}, testLogger()))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id.String(), nil))
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), id.String()) {
		t.Fatalf("unexpected detail response %d %s", resp.Code, resp.Body.String())
	}
}

func TestAdminCreateProduct(t *testing.T) {
	svc := &stubCatalogService{}
	body := `{"name":"  Wolf Hoodie ","price":"49.90","stock":12,"weight_kg":0.8,"category":"apparel"}`
	resp := httptest.NewRecorder()
	AdminCreateProduct(svc, testLogger()).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created.Name != "Wolf Hoodie" || !svc.created.Price.Equal(decimal.RequireFromString("49.90")) || svc.created.Stock != 12 {
		t.Fatalf("unexpected input %+v", svc.created)
	}
}

func TestAdminCreateProductRejectsNegativeStock(t *testing.T) {
	body := `{"name":"Hoodie","price":"10","stock":-1}`
	resp := httptest.NewRecorder()
	AdminCreateProduct(&stubCatalogService{}, testLogger()).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/admin/v1/products", strings.NewReader(body)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
