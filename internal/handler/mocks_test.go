package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"plumbstore/internal/auth"
	"plumbstore/internal/model"
	"plumbstore/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	customer = auth.Identity{UserID: 7, RoleID: 1}
	admin    = auth.Identity{UserID: 1, RoleID: auth.AdminRoleID}
)

// serve routes a request through a chi router so URL parameters resolve, with an optional caller identity.
func serve(t *testing.T, pattern, method, target string, body io.Reader, actor *auth.Identity, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	return serveRequest(pattern, chiRequest(method, target, body, actor), h)
}

// chiRequest builds a request carrying an optional caller identity.
func chiRequest(method, target string, body io.Reader, actor *auth.Identity) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if actor != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), *actor))
	}
	return req
}

// serveRequest routes a prepared request through a chi router registered on pattern.
func serveRequest(pattern string, req *http.Request, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(req.Method, pattern, h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	if s, ok := v.(string); ok {
		return bytes.NewBufferString(s)
	}
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// MockCatalogService is a mock implementation of CatalogService.
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) ListProducts(ctx context.Context, limit, offset int, categoryID *int64) ([]model.Product, error) {
	args := m.Called(ctx, limit, offset, categoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockCatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Category), args.Error(1)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddItem(ctx context.Context, actor auth.Identity, req model.AddToCartRequest) (*model.CartLine, bool, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, false, args.Error(2)
	}
	return args.Get(0).(*model.CartLine), args.Bool(1), args.Error(2)
}

func (m *MockCartService) RemoveItem(ctx context.Context, actor auth.Identity, lineID int64) error {
	return m.Called(ctx, actor, lineID).Error(0)
}

func (m *MockCartService) SetQuantity(ctx context.Context, actor auth.Identity, lineID int64, quantity int) (*model.CartLine, error) {
	args := m.Called(ctx, actor, lineID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartLine), args.Error(1)
}

func (m *MockCartService) ListCart(ctx context.Context, actor auth.Identity, userID int64) ([]model.CartLineView, error) {
	args := m.Called(ctx, actor, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartLineView), args.Error(1)
}

func (m *MockCartService) GetTotal(ctx context.Context, actor auth.Identity, userID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, actor, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockCartService) ClearCart(ctx context.Context, actor auth.Identity) (int64, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).(int64), args.Error(1)
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, actor auth.Identity, req *model.OrderRequest) (*model.Order, error) {
	args := m.Called(ctx, actor, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, actor auth.Identity, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, actor, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, actor auth.Identity) ([]model.Order, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) ListOrdersForUser(ctx context.Context, actor auth.Identity, userID int64) ([]model.Order, error) {
	args := m.Called(ctx, actor, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, status string) (*model.Order, error) {
	args := m.Called(ctx, actor, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

// MockPlumberRequestService is a mock implementation of PlumberRequestService.
type MockPlumberRequestService struct {
	mock.Mock
}

func (m *MockPlumberRequestService) CreateRequest(ctx context.Context, actor auth.Identity, req *model.CreatePlumberRequest, image *service.ImageUpload) (*model.PlumberRequest, error) {
	args := m.Called(ctx, actor, req, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlumberRequest), args.Error(1)
}

func (m *MockPlumberRequestService) UpdateStatus(ctx context.Context, actor auth.Identity, id uuid.UUID, status string) (*model.PlumberRequest, error) {
	args := m.Called(ctx, actor, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlumberRequest), args.Error(1)
}

func (m *MockPlumberRequestService) RateAndComment(ctx context.Context, actor auth.Identity, id uuid.UUID, req *model.RatingCommentRequest) (*model.PlumberRequest, error) {
	args := m.Called(ctx, actor, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlumberRequest), args.Error(1)
}

func (m *MockPlumberRequestService) ListRequestsForUser(ctx context.Context, actor auth.Identity, userID int64) ([]model.PlumberRequest, error) {
	args := m.Called(ctx, actor, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PlumberRequest), args.Error(1)
}

func (m *MockPlumberRequestService) ListAllRequests(ctx context.Context, actor auth.Identity) ([]model.PlumberRequest, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PlumberRequest), args.Error(1)
}

func intPtr(v int) *int { return &v }
