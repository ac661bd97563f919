package reviews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MudassirSafi/Wolf-Backend/api/middleware"
	internalreviews "github.com/MudassirSafi/Wolf-Backend/internal/reviews"
	"github.com/MudassirSafi/Wolf-Backend/pkg/enums"
	pkgerrors "github.com/MudassirSafi/Wolf-Backend/pkg/errors"
	"github.com/MudassirSafi/Wolf-Backend/pkg/logger"
	"github.com/MudassirSafi/Wolf-Backend/pkg/pagination"
)

type stubReviewService struct {
	list   func(ctx context.Context, productID uuid.UUID, params pagination.Params) (*internalreviews.ReviewListResult, error)
	create func(ctx context.Context, input internalreviews.CreateReviewInput) (*internalreviews.ReviewDTO, error)
	update func(ctx context.Context, input internalreviews.UpdateReviewInput) (*internalreviews.ReviewDTO, error)
	remove func(ctx context.Context, userID, reviewID uuid.UUID) error
}

func (s *stubReviewService) ListForProduct(ctx context.Context, productID uuid.UUID, params pagination.Params) (*internalreviews.ReviewListResult, error) {
	return s.list(ctx, productID, params)
}

func (s *stubReviewService) Create(ctx context.Context, input internalreviews.CreateReviewInput) (*internalreviews.ReviewDTO, error) {
	return s.create(ctx, input)
}

func (s *stubReviewService) Update(ctx context.Context, input internalreviews.UpdateReviewInput) (*internalreviews.ReviewDTO, error) {
	return s.update(ctx, input)
}

func (s *stubReviewService) Delete(ctx context.Context, userID, reviewID uuid.UUID) error {
	return s.remove(ctx, userID, reviewID)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "reviews-controller-test"})
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

func TestForProductIsPublic(t *testing.T) {
	productID := uuid.New()
	svc := &stubReviewService{list: func(_ context.Context, got uuid.UUID, params pagination.Params) (*internalreviews.ReviewListResult, error) {
		if got != productID {
			t.Fatalf("expected product %s got %s", productID, got)
		}
		return &internalreviews.ReviewListResult{Items: []internalreviews.ReviewDTO{}, AverageRating: 4.5}, nil
	}}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/"+productID.String()+"/reviews", nil), "productId", productID.String())
	resp := httptest.NewRecorder()

	ForProduct(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"average_rating":4.5`) {
		t.Fatalf("expected average rating in body, got %s", resp.Body.String())
	}
}

func TestCreateReturnsCreated(t *testing.T) {
	userID := uuid.New()
	productID := uuid.New()
	svc := &stubReviewService{create: func(_ context.Context, input internalreviews.CreateReviewInput) (*internalreviews.ReviewDTO, error) {
		if input.UserID != userID || input.ProductID != productID || input.Rating != 5 || input.Comment != "great" {
			t.Fatalf("unexpected input %+v", input)
		}
		return &internalreviews.ReviewDTO{ID: uuid.New(), ProductID: productID, UserID: userID, Rating: 5}, nil
	}}

	body := `{"product_id": "` + productID.String() + `", "rating": 5, "comment": "great"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(body)), userID)
	resp := httptest.NewRecorder()

	Create(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateSecondReviewConflicts(t *testing.T) {
	svc := &stubReviewService{create: func(context.Context, internalreviews.CreateReviewInput) (*internalreviews.ReviewDTO, error) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed").WithReason(pkgerrors.ReasonAlreadyReviewed)
	}}

	body := `{"product_id": "` + uuid.NewString() + `", "rating": 4}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(body)), uuid.New())
	resp := httptest.NewRecorder()

	Create(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), string(pkgerrors.ReasonAlreadyReviewed)) {
		t.Fatalf("expected reason in body, got %s", resp.Body.String())
	}
}

func TestCreateRejectsGuest(t *testing.T) {
	body := `{"product_id": "` + uuid.NewString() + `", "rating": 4}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reviews", strings.NewReader(body))
	resp := httptest.NewRecorder()

	Create(&stubReviewService{}, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestUpdateScopesToCaller(t *testing.T) {
	userID := uuid.New()
	reviewID := uuid.New()
	svc := &stubReviewService{update: func(_ context.Context, input internalreviews.UpdateReviewInput) (*internalreviews.ReviewDTO, error) {
		if input.UserID != userID || input.ReviewID != reviewID || input.Rating != 3 {
			t.Fatalf("unexpected input %+v", input)
		}
		return &internalreviews.ReviewDTO{ID: reviewID, Rating: 3}, nil
	}}

	req := withActor(httptest.NewRequest(http.MethodPut, "/api/v1/reviews/"+reviewID.String(), strings.NewReader(`{"rating": 3}`)), userID)
	req = withURLParam(req, "reviewId", reviewID.String())
	resp := httptest.NewRecorder()

	Update(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestDeleteOfForeignReviewIsNotFound(t *testing.T) {
	reviewID := uuid.New()
	svc := &stubReviewService{remove: func(context.Context, uuid.UUID, uuid.UUID) error {
		return pkgerrors.New(pkgerrors.CodeNotFound, "review not found").WithReason(pkgerrors.ReasonReviewNotFound)
	}}

	req := withActor(httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/"+reviewID.String(), nil), uuid.New())
	req = withURLParam(req, "reviewId", reviewID.String())
	resp := httptest.NewRecorder()

	Delete(svc, testLogger()).ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
