package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tweet-verify/config"
	"tweet-verify/pkg/model"
	"tweet-verify/pkg/service"
)

type stubAnalyzer struct {
	verdict *model.Verdict
	err     error
}

func (s stubAnalyzer) Analyze(context.Context, string) (*model.Verdict, error) {
	return s.verdict, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(analyzer service.Analyzer, mockFallback bool) (*Server, *service.HistoryService) {
	history := service.NewHistoryServiceWithStore(service.NewMemoryHistoryStore(), 10)
	cfg := config.NewDefaultServerConfig()
	cfg.MockFallback = mockFallback
	return NewServer(analyzer, history, cfg), history
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBasicRoutes(t *testing.T) {
	s, _ := newTestServer(stubAnalyzer{}, false)
	r := s.SetupRouter()

	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Welcome to Your Website!", w.Body.String())

	w = do(r, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = do(r, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Page not found.", w.Body.String())
}

func TestAnalyzeRequiresText(t *testing.T) {
	s, _ := newTestServer(stubAnalyzer{}, false)
	r := s.SetupRouter()

	for _, body := range []string{`{}`, `{"text":""}`, `not json`} {
		w := do(r, http.MethodPost, "/api/tweets/analyze", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Tweet text is required"}`, w.Body.String())
	}
}

func TestAnalyzeAndHistory(t *testing.T) {
	s, _ := newTestServer(stubAnalyzer{verdict: &model.Verdict{IsFakeNews: true, ConfidenceScore: 0.8}}, false)
	r := s.SetupRouter()

	w := do(r, http.MethodPost, "/api/tweets/analyze", `{"text":"the moon is cheese"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ID)
	assert.True(t, resp.IsFakeNews)
	assert.InDelta(t, 0.8, resp.ConfidenceScore, 1e-12)
	assert.False(t, resp.Timestamp.IsZero())

	w = do(r, http.MethodGet, "/api/tweets/history?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var hist HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist.Tweets, 1)
	assert.Equal(t, resp.ID, hist.Tweets[0].ID)
	assert.Equal(t, "the moon is cheese", hist.Tweets[0].Text)
}

func TestHistoryEmpty(t *testing.T) {
	s, _ := newTestServer(stubAnalyzer{}, false)
	w := do(s.SetupRouter(), http.MethodGet, "/api/tweets/history?limit=abc", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tweets":[]}`, w.Body.String())
}

func TestAnalyzeFailure(t *testing.T) {
	s, history := newTestServer(stubAnalyzer{err: errors.New("model file not found")}, false)
	w := do(s.SetupRouter(), http.MethodPost, "/api/tweets/analyze", `{"text":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Error analyzing tweet: model file not found"}`, w.Body.String())

	records, err := history.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAnalyzeMockFallback(t *testing.T) {
	s, _ := newTestServer(stubAnalyzer{err: errors.New("model file not found")}, true)
	w := do(s.SetupRouter(), http.MethodPost, "/api/tweets/analyze", `{"text":"shocking secret they dont want you to know"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp AnalyzeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsFakeNews)
	assert.InDelta(t, 0.8, resp.ConfidenceScore, 1e-9)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(stubAnalyzer{}, false)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	s.SetupRouter().ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRunShutdown(t *testing.T) {
	s, _ := newTestServer(stubAnalyzer{}, false)
	s.cfg.Addr = "127.0.0.1:0"
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.Run(ctx))
}
