package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/method-advisor/internal/catalog"
	"github.com/jonathan/method-advisor/internal/recommend"
	"github.com/jonathan/method-advisor/internal/server/ratelimit"
	"github.com/jonathan/method-advisor/internal/types"
)

func testServer(t *testing.T, run func(ctx context.Context, opts recommend.Options) (*types.RecommendationBundle, error)) *Server {
	t.Helper()

	cat := catalog.New([]catalog.WeightMethod{
		{Name: "Entropy Weight Method", Type: "objective", Detail: "d"},
		{Name: "Delphi Method", Type: "subjective", Detail: "d"},
	})

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	s := &Server{
		catalog:     cat,
		rateLimiter: ratelimit.NewLimiter(&ratelimit.Config{Enabled: false}),
		provider:    "deepseek",
		log:         logrus.NewEntry(logger),
		run:         run,
	}
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func testBundle() *types.RecommendationBundle {
	return &types.RecommendationBundle{
		RunID: "run-123",
		Recommendations: []types.FinalRecommendation{
			{MethodName: "Entropy Weight Method", RuleScore: 9.0, SemanticScore: 8.0, FinalScore: 8.6, Source: types.SourceCatalog},
		},
		Summary: types.ProcessingSummary{CompletionStatus: "success", FinalMethodsCount: 1},
	}
}

func recommendBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(RecommendRequest{
		Questionnaire: types.Questionnaire{"domain": "finance"},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestHandleRecommend_Success(t *testing.T) {
	var captured recommend.Options
	s := testServer(t, func(_ context.Context, opts recommend.Options) (*types.RecommendationBundle, error) {
		captured = opts
		return testBundle(), nil
	})

	req := httptest.NewRequest("POST", "/recommend", recommendBody(t))
	w := httptest.NewRecorder()
	s.handleRecommend(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var bundle types.RecommendationBundle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bundle))
	assert.Equal(t, "run-123", bundle.RunID)
	require.Len(t, bundle.Recommendations, 1)
	assert.Equal(t, "Entropy Weight Method", bundle.Recommendations[0].MethodName)

	assert.Equal(t, "finance", captured.Questionnaire["domain"])
	assert.NotNil(t, captured.Catalog)
}

func TestHandleRecommend_InvalidBody(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest("POST", "/recommend", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	s.handleRecommend(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON")
}

func TestHandleRecommend_MissingQuestionnaire(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest("POST", "/recommend", strings.NewReader(`{"provider": "deepseek"}`))
	w := httptest.NewRecorder()
	s.handleRecommend(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Questionnaire")
}

func TestHandleRecommend_UnknownProvider(t *testing.T) {
	s := testServer(t, nil)

	body := `{"questionnaire": {"domain": "x"}, "provider": "watson"}`
	req := httptest.NewRequest("POST", "/recommend", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.handleRecommend(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRecommend_ProviderOverride(t *testing.T) {
	var captured recommend.Options
	s := testServer(t, func(_ context.Context, opts recommend.Options) (*types.RecommendationBundle, error) {
		captured = opts
		return testBundle(), nil
	})

	body := `{"questionnaire": {"domain": "x"}, "provider": "openai", "apiKey": "sk-test"}`
	req := httptest.NewRequest("POST", "/recommend", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.handleRecommend(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, "openai", captured.Provider)
	assert.Equal(t, "sk-test", captured.UserAPIKey)
}

func TestHandleRecommend_PrecomputedProfiles(t *testing.T) {
	var captured recommend.Options
	s := testServer(t, func(_ context.Context, opts recommend.Options) (*types.RecommendationBundle, error) {
		captured = opts
		return testBundle(), nil
	})

	body := `{
		"questionnaire": {"domain": "x"},
		"userNeeds": {"taskDimension": {"domain": "healthcare"}},
		"dataFeatures": {"dataStructure": {"indicatorCount": 12}}
	}`
	req := httptest.NewRequest("POST", "/recommend", strings.NewReader(body))
	w := httptest.NewRecorder()
	s.handleRecommend(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured.UserNeeds)
	assert.Equal(t, "healthcare", captured.UserNeeds.TaskDimension.Domain)
	require.NotNil(t, captured.DataFeatures)
	assert.Equal(t, 12, captured.DataFeatures.Structure.IndicatorCount)
}

func TestHandleRecommend_PipelineError(t *testing.T) {
	s := testServer(t, func(context.Context, recommend.Options) (*types.RecommendationBundle, error) {
		return nil, errors.New("boom")
	})

	req := httptest.NewRequest("POST", "/recommend", recommendBody(t))
	w := httptest.NewRecorder()
	s.handleRecommend(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandleRecommend_EmptyCatalogError(t *testing.T) {
	s := testServer(t, func(context.Context, recommend.Options) (*types.RecommendationBundle, error) {
		return nil, recommend.ErrEmptyCatalog
	})

	req := httptest.NewRequest("POST", "/recommend", recommendBody(t))
	w := httptest.NewRecorder()
	s.handleRecommend(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleRecommendStream(t *testing.T) {
	s := testServer(t, func(_ context.Context, opts recommend.Options) (*types.RecommendationBundle, error) {
		opts.OnProgress(recommend.ProgressEvent{Stage: recommend.StageUserNeeds, Message: "Analyzed user needs", RunID: "run-123"})
		opts.OnProgress(recommend.ProgressEvent{Stage: recommend.StageFinalResult, Message: "Recommendation complete", RunID: "run-123"})
		return testBundle(), nil
	})

	req := httptest.NewRequest("POST", "/recommend/stream", recommendBody(t))
	w := httptest.NewRecorder()
	s.handleRecommendStream(w, req)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.Contains(t, body, "event: stage")
	assert.Contains(t, body, `"userNeeds"`)
	assert.Contains(t, body, "event: result")
	assert.Contains(t, body, `"run-123"`)
	assert.Contains(t, body, "event: complete")
	assert.Contains(t, body, `"status":"success"`)
}

func TestHandleRecommendStream_PipelineError(t *testing.T) {
	s := testServer(t, func(context.Context, recommend.Options) (*types.RecommendationBundle, error) {
		return nil, errors.New("all endpoints down")
	})

	req := httptest.NewRequest("POST", "/recommend/stream", recommendBody(t))
	w := httptest.NewRecorder()
	s.handleRecommendStream(w, req)

	body := w.Body.String()
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, "all endpoints down")
}

func TestHandleListMethods(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest("GET", "/catalog", nil)
	w := httptest.NewRecorder()
	s.handleListMethods(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Methods []catalog.WeightMethod `json:"methods"`
		Count   int                    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "Entropy Weight Method", resp.Methods[0].Name)
}

func TestHandleGetMethod(t *testing.T) {
	s := testServer(t, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /catalog/{name}", s.handleGetMethod)

	req := httptest.NewRequest("GET", "/catalog/Delphi%20Method", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Delphi Method")

	req = httptest.NewRequest("GET", "/catalog/Unknown", nil)
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleHealth(t *testing.T) {
	s := testServer(t, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	s.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestNew_LoadsEmbeddedCatalog(t *testing.T) {
	s, err := New(Config{Port: 0})
	require.NoError(t, err)
	t.Cleanup(s.rateLimiter.Stop)

	assert.Greater(t, s.catalog.Len(), 0)
	assert.NotNil(t, s.Handler())
}
