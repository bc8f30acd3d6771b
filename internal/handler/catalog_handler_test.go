package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"plumbstore/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCatalogHandler_ListProducts(t *testing.T) {
	category := int64(3)

	tests := []struct {
		name           string
		query          string
		limit          int
		offset         int
		category       *int64
		expectedStatus int
		expectService  bool
	}{
		{name: "Default pagination", query: "", expectedStatus: http.StatusOK, expectService: true},
		{name: "Custom pagination", query: "?limit=5&offset=10", limit: 5, offset: 10, expectedStatus: http.StatusOK, expectService: true},
		{name: "Category filter", query: "?categoryId=3", category: &category, expectedStatus: http.StatusOK, expectService: true},
		{name: "Invalid limit", query: "?limit=abc", expectedStatus: http.StatusBadRequest},
		{name: "Invalid offset", query: "?offset=x", expectedStatus: http.StatusBadRequest},
		{name: "Invalid category", query: "?categoryId=pipes", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockCatalogService)
			h := NewCatalogHandler(svc, zerolog.Nop())

			if tt.expectService {
				svc.On("ListProducts", mock.Anything, tt.limit, tt.offset, tt.category).
					Return([]model.Product{{ID: 1, Name: "Tap", Price: decimal.RequireFromString("12.50")}}, nil)
			}

			w := serve(t, "/api/products", http.MethodGet, "/api/products"+tt.query, nil, nil, h.ListProducts)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectService {
				var products []model.Product
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
				assert.Len(t, products, 1)
				svc.AssertExpectations(t)
			} else {
				svc.AssertNotCalled(t, "ListProducts", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCatalogHandler_GetProduct(t *testing.T) {
	svc := new(MockCatalogService)
	h := NewCatalogHandler(svc, zerolog.Nop())

	svc.On("GetProduct", mock.Anything, int64(1)).Return(&model.Product{ID: 1, Name: "Tap"}, nil)
	svc.On("GetProduct", mock.Anything, int64(2)).Return(nil, model.ErrProductNotFound)

	w := serve(t, "/api/products/{id}", http.MethodGet, "/api/products/1", nil, nil, h.GetProduct)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, "/api/products/{id}", http.MethodGet, "/api/products/2", nil, nil, h.GetProduct)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, model.ErrCodeProductNotFound, decodeError(t, w).Error)

	w = serve(t, "/api/products/{id}", http.MethodGet, "/api/products/abc", nil, nil, h.GetProduct)
	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertNumberOfCalls(t, "GetProduct", 2)
}

func TestCatalogHandler_ListCategories(t *testing.T) {
	svc := new(MockCatalogService)
	h := NewCatalogHandler(svc, zerolog.Nop())
	svc.On("ListCategories", mock.Anything).Return([]model.Category{{ID: 1, Name: "Taps"}}, nil)

	w := serve(t, "/api/categories", http.MethodGet, "/api/categories", nil, nil, h.ListCategories)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Taps")
}
