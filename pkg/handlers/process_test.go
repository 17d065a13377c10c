package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/fda"
	"github.com/threecubed/seo-engine/pkg/llm"
	"github.com/threecubed/seo-engine/pkg/models"
	"github.com/threecubed/seo-engine/pkg/repositories"
	"github.com/threecubed/seo-engine/pkg/services"
)

const processReviewJSON = `{
	"scores": {"medical_accuracy": 92, "fda_compliance": 88, "seo_effectiveness": 85, "content_quality": 90, "risk_assessment": 80},
	"overall_score": 87,
	"recommendation": "Approve"
}`

type fixedEnricher struct{}

func (fixedEnricher) Enrich(ctx context.Context, productName, genericName, indication string) *fda.Enrichment {
	e := &fda.Enrichment{ProductName: productName}
	e.Summarize()
	return e
}

func newProcessMux(repo *repositories.MockSubmissionRepository, genContent string, genErr error) *http.ServeMux {
	logger := zap.NewNop()

	genMock := llm.NewMockGenerationClient()
	genMock.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string) (*llm.GenerateResponseResult, error) {
		if genErr != nil {
			return nil, genErr
		}
		return &llm.GenerateResponseResult{Content: genContent}, nil
	}
	reviewMock := llm.NewMockReviewClient()
	reviewMock.ReviewFunc = func(ctx context.Context, prompt string) (*llm.GenerateResponseResult, error) {
		return &llm.GenerateResponseResult{Content: processReviewJSON}, nil
	}

	processor := services.NewProcessor(repo, fixedEnricher{},
		services.NewContentGenerator(genMock, logger),
		services.NewQAReviewer(reviewMock, logger), logger)
	batch := services.NewBatchProcessor(repo, processor, services.BatchConfig{BatchSize: 5}, logger)

	mux := http.NewServeMux()
	NewProcessHandler(processor, batch, logger).RegisterRoutes(mux)
	return mux
}

func pendingSubmission(repo *repositories.MockSubmissionRepository) *models.Submission {
	sub := &models.Submission{
		ID:                 uuid.New(),
		ProductName:        "Keytruda",
		GenericName:        "pembrolizumab",
		Indication:         "Advanced Melanoma",
		TherapeuticArea:    "Oncology",
		WorkflowStage:      models.StageFormSubmitted,
		AIProcessingStatus: models.ProcessingPending,
	}
	repo.Put(sub)
	return sub
}

func TestProcess_RunsFullPipeline(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := pendingSubmission(repo)
	mux := newProcessMux(repo, `{"seo_title": "Keytruda for Melanoma", "primary_keywords": ["keytruda", "pembrolizumab", "melanoma immunotherapy"]}`, nil)

	body, _ := json.Marshal(ProcessRequest{SubmissionID: sub.ID})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ProcessingCompleted, sub.AIProcessingStatus)
	assert.Equal(t, models.StageSEOReview, sub.WorkflowStage)
	require.NotNil(t, sub.Content)
	assert.Contains(t, sub.Content.SEOTitle, "Keytruda")
	assert.GreaterOrEqual(t, len(sub.Content.PrimaryKeywords), 3)
}

func TestProcess_PipelineFailureIs500(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := pendingSubmission(repo)
	mux := newProcessMux(repo, "", assert.AnError)

	body, _ := json.Marshal(ProcessRequest{SubmissionID: sub.ID})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process", bytes.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, models.ProcessingFailed, sub.AIProcessingStatus)
	require.NotNil(t, sub.ErrorMessage)
}

func TestProcess_MissingSubmissionID(t *testing.T) {
	mux := newProcessMux(repositories.NewMockSubmissionRepository(), "", nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process", bytes.NewReader([]byte(`{}`))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProcess_UnknownSubmission(t *testing.T) {
	mux := newProcessMux(repositories.NewMockSubmissionRepository(), `{"seo_title": "T"}`, nil)

	body, _ := json.Marshal(ProcessRequest{SubmissionID: uuid.New()})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process", bytes.NewReader(body)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReprocess_ReturnsReport(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	stuck := pendingSubmission(repo)
	stuck.AIProcessingStatus = models.ProcessingRunning
	mux := newProcessMux(repo, `{"seo_title": "Recovered Title"}`, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reprocess", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool                 `json:"success"`
		Data    services.BatchReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Data.Found)
	assert.Equal(t, 1, resp.Data.Succeeded)
	assert.Equal(t, models.ProcessingCompleted, stuck.AIProcessingStatus)
}

func TestReprocess_NothingToDo(t *testing.T) {
	mux := newProcessMux(repositories.NewMockSubmissionRepository(), `{"seo_title": "T"}`, nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reprocess", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"found":0`)
}

func TestProcess_AsyncReturnsAccepted(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := pendingSubmission(repo)
	mux := newProcessMux(repo, `{"seo_title": "Keytruda for Melanoma"}`, nil)

	body, _ := json.Marshal(ProcessRequest{SubmissionID: sub.ID, Async: true})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/process", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code)

	require.Eventually(t, func() bool {
		return repo.AppliedCount() == 1
	}, 2*time.Second, 5*time.Millisecond, "pipeline should complete after the 202")

	got, err := repo.GetByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProcessingCompleted, got.AIProcessingStatus)
	assert.Equal(t, models.StageSEOReview, got.WorkflowStage)
}
