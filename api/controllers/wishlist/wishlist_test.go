package wishlist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MudassirSafi/Wolf-Backend/api/middleware"
	internalwishlist "github.com/MudassirSafi/Wolf-Backend/internal/wishlist"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

type stubWishlistService struct {
	list    func(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalwishlist.WishlistPageDTO, error)
	add     func(ctx context.Context, userID, productID uuid.UUID) (*internalwishlist.MembershipDTO, error)
	cleared []uuid.UUID
}

func (s *stubWishlistService) GetWishlist(ctx context.Context, userID uuid.UUID, params pagination.Params) (*internalwishlist.WishlistPageDTO, error) {
	return s.list(ctx, userID, params)
}

func (s *stubWishlistService) GetWishlistIDs(context.Context, uuid.UUID) (*internalwishlist.WishlistIDsDTO, error) {
	return &internalwishlist.WishlistIDsDTO{ProductIDs: []uuid.UUID{}}, nil
}

func (s *stubWishlistService) Check(_ context.Context, _ uuid.UUID, productID uuid.UUID) (*internalwishlist.MembershipDTO, error) {
	return &internalwishlist.MembershipDTO{ProductID: productID}, nil
}

func (s *stubWishlistService) AddItem(ctx context.Context, userID, productID uuid.UUID) (*internalwishlist.MembershipDTO, error) {
	return s.add(ctx, userID, productID)
}

func (s *stubWishlistService) RemoveItem(_ context.Context, _ uuid.UUID, productID uuid.UUID) (*internalwishlist.MembershipDTO, error) {
	return &internalwishlist.MembershipDTO{ProductID: productID}, nil
}

func (s *stubWishlistService) Clear(_ context.Context, userID uuid.UUID) error {
	s.cleared = append(s.cleared, userID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "wishlist-controller-test"})
}

func withActor(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := middleware.WithUserID(r.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(enums.UserRoleCustomer))
	return r.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestListPassesPaging(t *testing.T) {
	userID := uuid.New()
	svc := &stubWishlistService{list: func(_ context.Context, gotUser uuid.UUID, params pagination.Params) (*internalwishlist.WishlistPageDTO, error) {
		if gotUser != userID {
			t.Fatalf("expected caller %s got %s", userID, gotUser)
		}
		if params.Page != 3 || params.PageSize != 4 {
			t.Fatalf("unexpected params %+v", params)
		}
		return &internalwishlist.WishlistPageDTO{Items: []internalwishlist.WishlistItemDTO{}}, nil
	}}

	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/wishlist?page=3&page_size=4", nil), userID)
	resp := httptest.NewRecorder()

	List(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestListRejectsGuest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/wishlist", nil)
	resp := httptest.NewRecorder()

	List(&stubWishlistService{}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAddReportsMembership(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	svc := &stubWishlistService{add: func(_ context.Context, gotUser, gotProduct uuid.UUID) (*internalwishlist.MembershipDTO, error) {
		if gotUser != userID || gotProduct != productID {
			t.Fatalf("unexpected ids %s %s", gotUser, gotProduct)
		}
		return &internalwishlist.MembershipDTO{ProductID: productID, InWishlist: true}, nil
	}}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/wishlist/"+productID.String(), nil), userID)
	req = withURLParam(req, "productId", productID.String())
	resp := httptest.NewRecorder()

	Add(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data internalwishlist.MembershipDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !envelope.Data.InWishlist || envelope.Data.ProductID != productID {
		t.Fatalf("unexpected membership %+v", envelope.Data)
	}
}

func TestAddMapsMissingProduct(t *testing.T) {
	productID := uuid.New()
	svc := &stubWishlistService{add: func(context.Context, uuid.UUID, uuid.UUID) (*internalwishlist.MembershipDTO, error) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}}

	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/wishlist/"+productID.String(), nil), uuid.New())
	req = withURLParam(req, "productId", productID.String())
	resp := httptest.NewRecorder()

	Add(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCheckValidatesProductID(t *testing.T) {
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/wishlist/check/nope", nil), uuid.New())
	req = withURLParam(req, "productId", "nope")
	resp := httptest.NewRecorder()

	Check(&stubWishlistService{}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestClearScopesToCaller(t *testing.T) {
	userID := uuid.New()
	svc := &stubWishlistService{}

	req := withActor(httptest.NewRequest(http.MethodDelete, "/api/v1/wishlist", nil), userID)
	resp := httptest.NewRecorder()

	Clear(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(svc.cleared) != 1 || svc.cleared[0] != userID {
		t.Fatalf("expected one clear for caller, got %v", svc.cleared)
	}
}
