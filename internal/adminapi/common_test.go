package adminapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/openmercato/mercato/internal/checkout"
)

func testContext(t *testing.T, target string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestParsePagination(t *testing.T) {
	page, pageSize := parsePagination(testContext(t, "/?page=3&perPage=50"))
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, pageSize)

	page, pageSize = parsePagination(testContext(t, "/"))
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, pageSize)

	// oversized and negative values fall back to defaults
	page, pageSize = parsePagination(testContext(t, "/?page=-1&perPage=9999"))
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, pageSize)
}

func TestSortColumnWhitelist(t *testing.T) {
	allowed := map[string]string{"name": "name", "price": "price"}

	assert.Equal(t, "name ASC", sortColumn(testContext(t, "/?sort=name&order=asc"), allowed, "id"))
	assert.Equal(t, "price DESC", sortColumn(testContext(t, "/?sort=price"), allowed, "id"))
	// unknown columns never reach the query
	assert.Equal(t, "id DESC", sortColumn(testContext(t, "/?sort=price;drop+table"), allowed, "id"))
	assert.Equal(t, "id DESC", sortColumn(testContext(t, "/"), allowed, "id"))
}

func TestFailCheckoutMapsSentinelErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{checkout.ErrEmptyCart, http.StatusBadRequest},
		{checkout.ErrProductNotFound, http.StatusBadRequest},
		{checkout.ErrPackNotOfferable, http.StatusConflict},
		{checkout.ErrInsufficientStock, http.StatusConflict},
		{checkout.ErrTotalMismatch, http.StatusConflict},
	}
	for _, tc := range cases {
		e := echo.New()
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		assert.NoError(t, failCheckout(c, tc.err))
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}
