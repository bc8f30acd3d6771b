package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"plumbstore/internal/auth"
	"plumbstore/internal/events"
	"plumbstore/internal/handler"
	"plumbstore/internal/metrics"
	"plumbstore/internal/model"
	"plumbstore/internal/repository"
	"plumbstore/internal/router"
	"plumbstore/internal/service"
	"plumbstore/internal/storage"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "integration-secret"

type apiClient struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func (c *apiClient) do(method, path string, body any, headers map[string]string) *http.Response {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func intPtr(v int) *int { return &v }

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type apiFixture struct {
	db       *TestDB
	server   *httptest.Server
	catalog  SeededCatalog
	uploads  string
	customer *apiClient
	other    *apiClient
	admin    *apiClient
	anon     *apiClient
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	testDB := SetupTestDB(t)
	logger := zerolog.Nop()

	catalogRepo := repository.NewCatalogRepository(testDB.Pool, logger)
	cartRepo := repository.NewCartRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	requestRepo := repository.NewPlumberRequestRepository(testDB.Pool, logger)

	uploads := t.TempDir()
	recorder := metrics.New()
	publisher := events.NopPublisher{}

	catalogSvc := service.NewCatalogService(catalogRepo, logger)
	cartSvc := service.NewCartService(cartRepo, catalogRepo, recorder, logger)
	orderSvc := service.NewOrderService(orderRepo, cartRepo, catalogRepo, publisher, recorder,
		service.OrderOptions{Policy: model.PolicyStrict}, logger)
	requestSvc := service.NewPlumberRequestService(requestRepo, storage.NewLocalStore(uploads, logger), publisher, recorder,
		service.PlumberRequestOptions{Policy: model.PolicyStrict, RatingRequiresCompletion: true}, logger)

	verifier := auth.NewVerifier(testSecret)
	h := router.New(router.Handlers{
		Catalog:        handler.NewCatalogHandler(catalogSvc, logger),
		Cart:           handler.NewCartHandler(cartSvc, logger),
		Order:          handler.NewOrderHandler(orderSvc, logger),
		PlumberRequest: handler.NewPlumberRequestHandler(requestSvc, 1<<20, logger),
	}, verifier, recorder, testDB.Pool, logger)

	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	client := func(identity *auth.Identity) *apiClient {
		c := &apiClient{t: t, server: server}
		if identity != nil {
			token, err := verifier.Issue(*identity, 0)
			require.NoError(t, err)
			c.token = token
		}
		return c
	}

	return &apiFixture{
		db:       testDB,
		server:   server,
		uploads:  uploads,
		customer: client(&auth.Identity{UserID: 7, RoleID: 1}),
		other:    client(&auth.Identity{UserID: 8, RoleID: 1}),
		admin:    client(&auth.Identity{UserID: 1, RoleID: auth.AdminRoleID}),
		anon:     client(nil),
	}
}

func (f *apiFixture) reset(t *testing.T) {
	CleanupDB(t, f.db.Pool)
	f.catalog = SeedCatalog(t, f.db.Pool)
}

func (f *apiFixture) fillCart(t *testing.T, c *apiClient) {
	t.Helper()
	resp := c.do(http.MethodPost, "/api/cart", model.AddToCartRequest{ProductID: f.catalog.TapID, Quantity: intPtr(2)}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = c.do(http.MethodPost, "/api/cart", model.AddToCartRequest{ProductID: f.catalog.WasherID, Quantity: intPtr(1)}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	f := setupAPI(t)

	t.Run("health reports the database reachable", func(t *testing.T) {
		resp := f.anon.do(http.MethodGet, "/health", nil, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("catalogue is public", func(t *testing.T) {
		f.reset(t)

		resp := f.anon.do(http.MethodGet, "/api/products?limit=2", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		products := decodeBody[[]model.Product](t, resp)
		assert.Len(t, products, 2)

		resp = f.anon.do(http.MethodGet, fmt.Sprintf("/api/products/%d", f.catalog.WrenchID), nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		product := decodeBody[model.Product](t, resp)
		assert.True(t, decimal.RequireFromString("35.50").Equal(product.Price))

		resp = f.anon.do(http.MethodGet, "/api/products/999999", nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("cart requires a bearer token", func(t *testing.T) {
		resp := f.anon.do(http.MethodGet, "/api/cart/7", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("cart to order to status lifecycle", func(t *testing.T) {
		f.reset(t)
		f.fillCart(t, f.customer)

		// Adding the same product again merges into the existing line.
		resp := f.customer.do(http.MethodPost, "/api/cart", model.AddToCartRequest{ProductID: f.catalog.WasherID}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		line := decodeBody[model.CartLine](t, resp)
		assert.Equal(t, 2, line.Quantity)

		resp = f.customer.do(http.MethodPost, "/api/cart", map[string]any{"productId": f.catalog.WasherID, "quantity": 0}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, model.ErrCodeInvalidQuantity, decodeBody[model.ErrorResponse](t, resp).Error)

		resp = f.customer.do(http.MethodGet, "/api/cart/7/total", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		total := decodeBody[handler.CartTotalResponse](t, resp)
		assert.True(t, decimal.NewFromInt(300).Equal(total.Total), "got %s", total.Total)

		resp = f.other.do(http.MethodGet, "/api/cart/7", nil, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = f.customer.do(http.MethodPatch, fmt.Sprintf("/api/cart/%d", line.ID), model.UpdateCartLineRequest{Quantity: 1}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.customer.do(http.MethodPost, "/api/orders", model.OrderRequest{Address: "1 Pipe Lane"}, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		order := decodeBody[model.Order](t, resp)
		assert.Equal(t, model.StatusPending, order.Status)
		assert.True(t, decimal.NewFromInt(250).Equal(order.Total), "got %s", order.Total)
		assert.Len(t, order.Items, 2)

		resp = f.customer.do(http.MethodGet, "/api/cart/7", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, decodeBody[[]model.CartLineView](t, resp))

		resp = f.customer.do(http.MethodPost, "/api/orders", model.OrderRequest{Address: "1 Pipe Lane"}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, model.ErrCodeEmptyCart, decodeBody[model.ErrorResponse](t, resp).Error)

		statusPath := fmt.Sprintf("/api/orders/%s/status", order.ID)

		resp = f.customer.do(http.MethodPatch, statusPath, model.StatusUpdateRequest{Status: "accepted"}, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = f.admin.do(http.MethodPatch, statusPath, model.StatusUpdateRequest{Status: "accepted"}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, model.StatusAccepted, decodeBody[model.Order](t, resp).Status)

		resp = f.admin.do(http.MethodPatch, statusPath, model.StatusUpdateRequest{Status: "Completed"}, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = f.admin.do(http.MethodPatch, statusPath, model.StatusUpdateRequest{Status: "pending"}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, model.ErrCodeInvalidStatusTransition, decodeBody[model.ErrorResponse](t, resp).Error)

		resp = f.admin.do(http.MethodPatch, statusPath, model.StatusUpdateRequest{Status: "shipped"}, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, model.ErrCodeInvalidStatus, decodeBody[model.ErrorResponse](t, resp).Error)

		resp = f.customer.do(http.MethodGet, fmt.Sprintf("/api/orders/%s", order.ID), nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, model.StatusCompleted, decodeBody[model.Order](t, resp).Status)

		resp = f.other.do(http.MethodGet, fmt.Sprintf("/api/orders/%s", order.ID), nil, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = f.customer.do(http.MethodGet, "/api/orders/all", nil, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = f.admin.do(http.MethodGet, "/api/orders/all", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decodeBody[[]model.Order](t, resp), 1)
	})

	t.Run("idempotency key replays the first order", func(t *testing.T) {
		f.reset(t)
		f.fillCart(t, f.customer)

		headers := map[string]string{handler.IdempotencyKeyHeader: "checkout-1"}
		resp := f.customer.do(http.MethodPost, "/api/orders", model.OrderRequest{Address: "1 Pipe Lane"}, headers)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		first := decodeBody[model.Order](t, resp)

		f.fillCart(t, f.customer)

		resp = f.customer.do(http.MethodPost, "/api/orders", model.OrderRequest{Address: "1 Pipe Lane"}, headers)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		replay := decodeBody[model.Order](t, resp)
		assert.Equal(t, first.ID, replay.ID)

		resp = f.customer.do(http.MethodGet, "/api/cart/7", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decodeBody[[]model.CartLineView](t, resp), 2, "replay must leave the cart untouched")

		resp = f.customer.do(http.MethodGet, "/api/orders", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Len(t, decodeBody[[]model.Order](t, resp), 1)
	})

	t.Run("direct products are priced from the catalogue", func(t *testing.T) {
		f.reset(t)
		f.fillCart(t, f.customer)

		req := model.OrderRequest{
			Address:  "2 Drain Road",
			Products: []model.OrderItemRequest{{ProductID: f.catalog.WrenchID, Quantity: 2}},
		}
		resp := f.customer.do(http.MethodPost, "/api/orders", req, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		order := decodeBody[model.Order](t, resp)
		assert.True(t, decimal.NewFromInt(71).Equal(order.Total), "got %s", order.Total)

		resp = f.customer.do(http.MethodGet, "/api/cart/7", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, decodeBody[[]model.CartLineView](t, resp))
	})

	t.Run("plumber request lifecycle", func(t *testing.T) {
		f.reset(t)

		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		require.NoError(t, mw.WriteField("address", "3 Leak Street"))
		require.NoError(t, mw.WriteField("phoneNumber", "555-0100"))
		require.NoError(t, mw.WriteField("problemDescription", "Burst pipe under the sink"))
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Disposition": {`form-data; name="image"; filename="sink.png"`},
			"Content-Type":        {"image/png"},
		})
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG fake image"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		httpReq, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/plumber-requests", body)
		require.NoError(t, err)
		httpReq.Header.Set("Content-Type", mw.FormDataContentType())
		httpReq.Header.Set("Authorization", "Bearer "+f.customer.token)
		resp, err := f.server.Client().Do(httpReq)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		created := decodeBody[model.PlumberRequest](t, resp)
		assert.Equal(t, model.StatusPending, created.Status)
		require.NotNil(t, created.Image)
		_, err = os.Stat(filepath.Join(f.uploads, filepath.FromSlash(*created.Image)))
		assert.NoError(t, err, "uploaded image should be stored on disk")

		ratePath := fmt.Sprintf("/api/plumber-requests/%s/rating-comment", created.ID)
		five := 5
		resp2 := f.customer.do(http.MethodPatch, ratePath, model.RatingCommentRequest{Rating: &five}, nil)
		assert.Equal(t, http.StatusBadRequest, resp2.StatusCode, "rating before completion")

		statusPath := fmt.Sprintf("/api/plumber-requests/%s/status", created.ID)
		resp2 = f.admin.do(http.MethodPatch, statusPath, model.StatusUpdateRequest{Status: "completed"}, nil)
		require.Equal(t, http.StatusBadRequest, resp2.StatusCode, "pending cannot jump to completed")
		for _, status := range []string{"accepted", "completed"} {
			resp2 = f.admin.do(http.MethodPatch, statusPath, model.StatusUpdateRequest{Status: status}, nil)
			require.Equal(t, http.StatusOK, resp2.StatusCode)
		}

		six := 6
		resp2 = f.customer.do(http.MethodPatch, ratePath, model.RatingCommentRequest{Rating: &six}, nil)
		require.Equal(t, http.StatusBadRequest, resp2.StatusCode)
		assert.Equal(t, model.ErrCodeInvalidRating, decodeBody[model.ErrorResponse](t, resp2).Error)

		resp2 = f.other.do(http.MethodPatch, ratePath, model.RatingCommentRequest{Rating: &five}, nil)
		assert.Equal(t, http.StatusForbidden, resp2.StatusCode)

		comment := "Fixed quickly"
		resp2 = f.customer.do(http.MethodPatch, ratePath, model.RatingCommentRequest{Rating: &five, Comment: &comment}, nil)
		require.Equal(t, http.StatusOK, resp2.StatusCode)
		rated := decodeBody[model.PlumberRequest](t, resp2)
		require.NotNil(t, rated.Rating)
		assert.Equal(t, 5, *rated.Rating)
		require.NotNil(t, rated.Comment)
		assert.Equal(t, comment, *rated.Comment)

		resp2 = f.customer.do(http.MethodGet, "/api/plumber-requests/user/7", nil, nil)
		require.Equal(t, http.StatusOK, resp2.StatusCode)
		assert.Len(t, decodeBody[[]model.PlumberRequest](t, resp2), 1)

		resp2 = f.other.do(http.MethodGet, "/api/plumber-requests/user/7", nil, nil)
		assert.Equal(t, http.StatusForbidden, resp2.StatusCode)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		resp := f.anon.do(http.MethodGet, "/metrics", nil, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "plumbstore_")
	})
}
