package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyowon/folio/internal/api/handlers"
	"github.com/hyowon/folio/internal/backup"
	"github.com/hyowon/folio/internal/contracts"
	"github.com/hyowon/folio/internal/prefs"
	"github.com/hyowon/folio/internal/prices"
	"github.com/hyowon/folio/internal/store"
	"github.com/hyowon/folio/pkg/config"
	"github.com/hyowon/folio/pkg/logger"
)

type mapQuoter map[string]float64

func (m mapQuoter) Quote(_ context.Context, symbol string) (float64, error) {
	price, ok := m[symbol]
	if !ok {
		return 0, errors.New("no quote")
	}
	return price, nil
}

type env struct {
	store   *store.Store
	handler http.Handler
}

func newEnv(t *testing.T, quotes mapQuoter) *env {
	t.Helper()

	cfg := &config.Config{
		PriceCacheTTL:  time.Minute,
		PriceWorkers:   2,
		MaxUploadBytes: 1 << 20,
		LogLevel:       "error",
		LogFormat:      "json",
	}
	log := logger.New(cfg)
	st := store.New()

	manager, err := backup.New(t.TempDir(), st, log)
	require.NoError(t, err)
	priceSvc := prices.NewService(quotes, cfg, log)
	order := prefs.NewSummaryOrder(filepath.Join(t.TempDir(), "summary_order.json"))

	router := NewRouter(Handlers{
		Portfolio: handlers.NewPortfolioHandler(st, priceSvc, log),
		Summary:   handlers.NewSummaryHandler(st, priceSvc, order, log),
		Backup:    handlers.NewBackupHandler(manager, cfg.MaxUploadBytes, log),
		Transfer:  handlers.NewTransferHandler(st, cfg.MaxUploadBytes, log),
	}, log)

	return &env{store: st, handler: router}
}

func (e *env) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestHealth(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestGetPortfolio(t *testing.T) {
	e := newEnv(t, mapQuoter{"AAPL": 120})
	_, err := e.store.Buy("Growth", "AAPL", 10, 100, "")
	require.NoError(t, err)
	_, err = e.store.Buy("Growth", "MSFT", 2, 300, "")
	require.NoError(t, err)

	rec := e.do(t, "GET", "/api/portfolio?name=Growth", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body handlers.PortfolioResponse
	decode(t, rec, &body)
	assert.Equal(t, "Growth", body.Name)
	require.Len(t, body.Rows, 2)

	// AAPL has a live quote, MSFT does not
	aapl := body.Rows[0]
	require.NotNil(t, aapl.PL)
	assert.Equal(t, 200.0, *aapl.PL)
	msft := body.Rows[1]
	assert.Nil(t, msft.Price)
	assert.Nil(t, msft.PL)

	assert.Equal(t, 200.0, body.TotalPL)
	// MSFT valued at cost in the totals
	assert.Equal(t, 1200.0+600.0, body.Totals.Value)
}

func TestGetPortfolio_AppendsLivePoint(t *testing.T) {
	e := newEnv(t, mapQuoter{"AAPL": 120})
	_, err := e.store.Buy("Growth", "AAPL", 10, 100, "")
	require.NoError(t, err)
	require.Len(t, e.store.History("Growth"), 1)

	e.do(t, "GET", "/api/portfolio?name=Growth", nil)

	points := e.store.History("Growth")
	require.Len(t, points, 2)
	assert.Equal(t, contracts.PointLive, points[1].Source)
	assert.Equal(t, 1200.0, points[1].Value)
}

func TestGetPortfolio_EmptyPortfolioRecordsZeroPoint(t *testing.T) {
	e := newEnv(t, nil)
	require.NoError(t, e.store.Add("Growth"))

	e.do(t, "GET", "/api/portfolio?name=Growth", nil)

	points := e.store.History("Growth")
	require.Len(t, points, 1)
	assert.Equal(t, 0.0, points[0].Value)
	assert.Equal(t, contracts.PointLive, points[0].Source)
}

func TestGetPortfolio_LazyCreate(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, "GET", "/api/portfolio", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body handlers.PortfolioResponse
	decode(t, rec, &body)
	assert.Equal(t, contracts.FallbackPortfolioName, body.Name)
}

func TestPortfolioLifecycle(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, "POST", "/api/portfolio", map[string]string{"name": "Growth"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, "POST", "/api/portfolio", map[string]string{"name": "Growth"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, "POST", "/api/portfolio", map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "POST", "/api/portfolio/rename", map[string]string{"from": "Growth", "to": "LongTerm"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"LongTerm"}, e.store.Names())

	// Last portfolio is protected
	rec = e.do(t, "POST", "/api/portfolio/remove", map[string]string{"name": "LongTerm"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, e.store.Add("Other"))
	rec = e.do(t, "POST", "/api/portfolio/remove", map[string]string{"name": "LongTerm"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Other"}, e.store.Names())
}

func TestTrade(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, "POST", "/api/trade/buy", map[string]interface{}{
		"portfolio": "Growth", "symbol": "AAPL", "qty": 10, "price": 100,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, "POST", "/api/trade/buy", map[string]interface{}{
		"portfolio": "Growth", "symbol": "AAPL", "qty": 10, "price": 120,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Position contracts.Position `json:"position"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 20.0, *body.Position.Qty)
	assert.Equal(t, 110.0, *body.Position.AvgCost)

	rec = e.do(t, "POST", "/api/trade/sell", map[string]interface{}{
		"portfolio": "Growth", "symbol": "AAPL", "qty": 5, "price": 130,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Equal(t, 15.0, *body.Position.Qty)
	assert.Equal(t, 110.0, *body.Position.AvgCost)
}

func TestTrade_Invalid(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, "POST", "/api/trade/buy", map[string]interface{}{
		"portfolio": "Growth", "symbol": "AAPL", "qty": -5, "price": 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, "POST", "/api/trade/buy", map[string]interface{}{
		"portfolio": "Growth", "symbol": "", "qty": 5, "price": 100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTickers(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, "POST", "/api/tickers/add", map[string]string{"portfolio": "Growth", "symbol": "AAPL"})
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Tickers []string `json:"tickers"`
	}
	decode(t, rec, &body)
	assert.Equal(t, []string{"AAPL"}, body.Tickers)

	rec = e.do(t, "POST", "/api/tickers/remove", map[string]string{"portfolio": "Growth", "symbol": "AAPL"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	assert.Empty(t, body.Tickers)
}

func TestTags(t *testing.T) {
	e := newEnv(t, nil)
	require.NoError(t, e.store.Add("Growth"))

	rec := e.do(t, "POST", "/api/tags", map[string]interface{}{
		"portfolio": "Growth", "symbol": "AAPL", "tag": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"AAPL": 3}, e.store.Tags("Growth"))

	// Out-of-range tag rejected, existing tag untouched
	rec = e.do(t, "POST", "/api/tags", map[string]interface{}{
		"portfolio": "Growth", "symbol": "AAPL", "tag": 99,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]int{"AAPL": 3}, e.store.Tags("Growth"))

	// Null tag clears
	rec = e.do(t, "POST", "/api/tags", map[string]interface{}{
		"portfolio": "Growth", "symbol": "AAPL", "tag": nil,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, e.store.Tags("Growth"))
}

func TestTagLabels(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(t, "GET", "/api/tags/labels", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Labels []string `json:"labels"`
	}
	decode(t, rec, &body)
	assert.Equal(t, contracts.TagLabels, body.Labels)
}

func TestHistoryEndpoint(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.store.Buy("Growth", "AAPL", 10, 10, "")
	require.NoError(t, err)
	_, err = e.store.Sell("Growth", "AAPL", 4, 12, "")
	require.NoError(t, err)

	rec := e.do(t, "GET", "/api/history/Growth", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		History []contracts.HistoryPoint `json:"history"`
	}
	decode(t, rec, &body)
	require.Len(t, body.History, 2)
	assert.Equal(t, 100.0, body.History[0].Value)
	assert.Equal(t, 52.0, body.History[1].Value)

	rec = e.do(t, "GET", "/api/history/Nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummary(t *testing.T) {
	e := newEnv(t, mapQuoter{"AAPL": 120})
	_, err := e.store.Buy("Growth", "AAPL", 10, 100, "")
	require.NoError(t, err)
	_, err = e.store.Buy("Income", "AAPL", 2, 150, "")
	require.NoError(t, err)

	rec := e.do(t, "GET", "/api/summary", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body handlers.SummaryResponse
	decode(t, rec, &body)
	assert.Equal(t, []string{"Growth", "Income"}, body.Order)
	require.Len(t, body.Rows, 1)
	assert.Equal(t, "AAPL", body.Rows[0].Symbol)
	assert.Len(t, body.Rows[0].Cells, 2)
}

func TestSummaryOrder(t *testing.T) {
	e := newEnv(t, nil)
	require.NoError(t, e.store.Add("Growth"))
	require.NoError(t, e.store.Add("Income"))

	rec := e.do(t, "PUT", "/api/summary/order", map[string]interface{}{
		"order": []string{"Income", "Growth"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, "GET", "/api/summary/order", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Order []string `json:"order"`
	}
	decode(t, rec, &body)
	assert.Equal(t, []string{"Income", "Growth"}, body.Order)
}

func TestBackupAndRestore(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.store.Buy("Growth", "AAPL", 10, 100, "")
	require.NoError(t, err)

	rec := e.do(t, "POST", "/api/backup", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, "GET", "/api/backup/latest", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := rec.Body.Bytes()

	// Wipe, then restore from the downloaded snapshot
	e.store.Restore(contracts.Snapshot{})
	require.Empty(t, e.store.Names())

	req := httptest.NewRequest("POST", "/api/restore", bytes.NewReader(snapshot))
	rec = httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	pf, ok := e.store.Get("Growth")
	require.True(t, ok)
	assert.Equal(t, 10.0, *pf.Positions["AAPL"].Qty)
}

func TestRestore_Malformed(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.store.Buy("Growth", "AAPL", 10, 100, "")
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/restore", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	// Store untouched
	assert.Equal(t, []string{"Growth"}, e.store.Names())
}

func multipartUpload(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestImportCSV(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.store.Buy("Growth", "OLD", 1, 1, "")
	require.NoError(t, err)

	csv := "Symbol,Current Price,Trade Date,Purchase Price,Quantity\nAAPL,,,100,10\nAAPL,,,120,10\n"
	body, contentType := multipartUpload(t, "file", map[string]string{"holdings.csv": csv})

	req := httptest.NewRequest("POST", "/api/import/csv?portfolio=Growth", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	pf, _ := e.store.Get("Growth")
	// Import replaces the previous holdings wholesale
	assert.Equal(t, []string{"AAPL"}, pf.Tickers)
	assert.Equal(t, 20.0, *pf.Positions["AAPL"].Qty)
	assert.Equal(t, 110.0, *pf.Positions["AAPL"].AvgCost)
	assert.Len(t, pf.Transactions, 2)
}

func TestImportCSV_BadFileChangesNothing(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.store.Buy("Growth", "OLD", 1, 1, "")
	require.NoError(t, err)

	csv := "Symbol,Current Price,Trade Date,Purchase Price,Quantity\nAAPL,,,abc,10\n"
	body, contentType := multipartUpload(t, "file", map[string]string{"holdings.csv": csv})

	req := httptest.NewRequest("POST", "/api/import/csv?portfolio=Growth", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	pf, _ := e.store.Get("Growth")
	assert.Equal(t, []string{"OLD"}, pf.Tickers)
}

func TestImportBulk_SkipsBadFiles(t *testing.T) {
	e := newEnv(t, nil)

	body, contentType := multipartUpload(t, "files", map[string]string{
		"growth.csv": "Symbol,Current Price,Trade Date,Purchase Price,Quantity\nAAPL,,,100,10\n",
		"income.csv": "Symbol,Current Price,Trade Date,Purchase Price,Quantity\nKO,,,abc,5\n",
	})

	req := httptest.NewRequest("POST", "/api/import/csv/bulk", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result struct {
		Imported []string `json:"imported"`
		Skipped  []string `json:"skipped"`
	}
	decode(t, rec, &result)
	assert.Equal(t, []string{"growth"}, result.Imported)
	assert.Equal(t, []string{"income.csv"}, result.Skipped)

	pf, ok := e.store.Get("growth")
	require.True(t, ok)
	assert.Equal(t, []string{"AAPL"}, pf.Tickers)
}

func TestExportCSV(t *testing.T) {
	e := newEnv(t, nil)
	_, err := e.store.Buy("Growth", "AAPL", 10, 110.5, "")
	require.NoError(t, err)

	rec := e.do(t, "GET", "/api/export/csv?portfolio=Growth", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Symbol,Current Price,Trade Date,Purchase Price,Quantity", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "AAPL,,"))
	assert.True(t, strings.HasSuffix(lines[1], ",110.5,10"))
}
