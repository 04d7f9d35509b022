package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SignalDesk/internal/domain/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	analyzeErr    error
	invalidateErr error
	lastSymbol    string
	lastCost      float64
	lastLimit     int
}

func (f *fakeEngine) Symbol(symbol string) string {
	if s := strings.ToUpper(strings.TrimSpace(symbol)); s != "" {
		return s
	}
	return "408920.KQ"
}

func (f *fakeEngine) Analyze(_ context.Context, symbol string, costBasis float64) (*models.Analysis, error) {
	f.lastSymbol, f.lastCost = symbol, costBasis
	if f.analyzeErr != nil {
		return nil, f.analyzeErr
	}
	return &models.Analysis{
		Result: models.AnalysisResult{Symbol: symbol, CurrentPrice: 150, ProbabilityOfRise: 0.7},
		Recommendation: models.Recommendation{
			Tier:              models.TierOpportunity,
			CurrentPrice:      150,
			ProbabilityOfRise: 0.7,
		},
	}, nil
}

func (f *fakeEngine) Bars(_ context.Context, symbol string, limit int) (models.PriceSeries, error) {
	f.lastSymbol, f.lastLimit = symbol, limit
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return models.PriceSeries{Symbol: symbol, Bars: []models.PriceBar{
		{Date: day, Open: 1, High: 2, Low: 1, Close: 2, Volume: 10},
		{Date: day.AddDate(0, 0, 1), Open: 2, High: 3, Low: 2, Close: 3, Volume: 10},
	}}, nil
}

func (f *fakeEngine) Invalidate(_ context.Context, symbol string) error {
	f.lastSymbol = symbol
	return f.invalidateErr
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func serve(t *testing.T, eng Engine, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	NewAnalysisEchoHandler(nil, eng).RegisterRoutes(e)

	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestAnalysis_Success(t *testing.T) {
	eng := &fakeEngine{}
	rec, env := serve(t, eng, http.MethodGet, "/api/analysis?symbol=AAPL&cost_basis=200")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AAPL", eng.lastSymbol)
	assert.Equal(t, 200.0, eng.lastCost)

	var got models.Analysis
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, models.TierOpportunity, got.Recommendation.Tier)
	assert.Equal(t, "private, max-age=60", rec.Header().Get(echo.HeaderCacheControl))
}

func TestAnalysis_DefaultSymbol(t *testing.T) {
	eng := &fakeEngine{}
	rec, _ := serve(t, eng, http.MethodGet, "/api/analysis")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "408920.KQ", eng.lastSymbol)
	assert.Equal(t, 0.0, eng.lastCost)
}

func TestAnalysis_NegativeCostBasis(t *testing.T) {
	rec, env := serve(t, &fakeEngine{}, http.MethodGet, "/api/analysis?symbol=AAPL&cost_basis=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "cost_basis")
}

func TestAnalysis_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no data", models.DataUnavailable("ZZZ", "not found", nil), http.StatusNotFound, "ERR_DATA_UNAVAILABLE"},
		{"insufficient", models.InsufficientData("ZZZ", 9, 15), http.StatusUnprocessableEntity, "ERR_INSUFFICIENT_DATA"},
		{"unavailable", models.Unavailable("ZZZ", errors.New("dial tcp: refused")), http.StatusServiceUnavailable, "ERR_ANALYSIS_UNAVAILABLE"},
		{"untyped", errors.New("boom"), http.StatusServiceUnavailable, "ERR_ANALYSIS_UNAVAILABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := serve(t, &fakeEngine{analyzeErr: tc.err}, http.MethodGet, "/api/analysis?symbol=ZZZ")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.status, env.Status)

			var errs []map[string]interface{}
			require.NoError(t, json.Unmarshal(env.Data, &errs))
			require.Len(t, errs, 1)
			assert.Equal(t, tc.code, errs[0]["code"])
			assert.NotContains(t, rec.Body.String(), "refused")
		})
	}
}

func TestAnalysis_InsufficientParams(t *testing.T) {
	_, env := serve(t, &fakeEngine{analyzeErr: models.InsufficientData("ZZZ", 9, 15)}, http.MethodGet, "/api/analysis?symbol=ZZZ")
	var errs []struct {
		Params map[string]interface{} `json:"params"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, float64(9), errs[0].Params["rows"])
	assert.Equal(t, float64(15), errs[0].Params["required"])
}

func TestBars(t *testing.T) {
	eng := &fakeEngine{}
	rec, env := serve(t, eng, http.MethodGet, "/api/bars?symbol=aapl&limit=2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, eng.lastLimit)

	var list struct {
		Rows  []models.PriceBar `json:"rows"`
		Total int64             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Rows, 2)
	assert.EqualValues(t, 2, list.Total)
}

func TestBars_DefaultLimit(t *testing.T) {
	eng := &fakeEngine{}
	rec, _ := serve(t, eng, http.MethodGet, "/api/bars")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 120, eng.lastLimit)
}

func TestBars_LimitOutOfRange(t *testing.T) {
	rec, _ := serve(t, &fakeEngine{}, http.MethodGet, "/api/bars?symbol=A&limit=100000")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvalidate(t *testing.T) {
	eng := &fakeEngine{}
	rec, _ := serve(t, eng, http.MethodDelete, "/api/analysis/cache?symbol=aapl")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AAPL", eng.lastSymbol)

	rec, _ = serve(t, &fakeEngine{}, http.MethodDelete, "/api/analysis/cache")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = serve(t, &fakeEngine{invalidateErr: errors.New("redis down")}, http.MethodDelete, "/api/analysis/cache?symbol=a")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAnalysis_MalformedSymbol(t *testing.T) {
	eng := &fakeEngine{}
	rec, env := serve(t, eng, http.MethodGet, "/api/analysis?symbol=AA%2FPL")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_TICKER")
	assert.Empty(t, eng.lastSymbol)
}
