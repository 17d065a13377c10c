package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threecubed/seo-engine/pkg/models"
	"github.com/threecubed/seo-engine/pkg/repositories"
	"github.com/threecubed/seo-engine/pkg/services"
)

func newSubmissionsMux(repo *repositories.MockSubmissionRepository) *http.ServeMux {
	mux := http.NewServeMux()
	poller := services.NewStatusPoller(repo, services.PollerConfig{
		Interval:    time.Millisecond,
		MaxAttempts: 5,
	}, zap.NewNop())
	NewSubmissionsHandler(repo, poller, zap.NewNop()).RegisterRoutes(mux)
	return mux
}

func seedRepoSubmission(repo *repositories.MockSubmissionRepository) *models.Submission {
	sub := &models.Submission{
		ID:                 uuid.New(),
		ComplianceID:       "SEO-2026-ABCD1234",
		ProductName:        "Keytruda",
		GenericName:        "pembrolizumab",
		Indication:         "Advanced Melanoma",
		TherapeuticArea:    "Oncology",
		WorkflowStage:      models.StageSEOReview,
		AIProcessingStatus: models.ProcessingCompleted,
	}
	repo.Put(sub)
	return sub
}

func TestCreateSubmission(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	mux := newSubmissionsMux(repo)

	body, _ := json.Marshal(CreateSubmissionRequest{
		ProductName:     "Keytruda",
		GenericName:     "pembrolizumab",
		Indication:      "Advanced Melanoma",
		TherapeuticArea: "Oncology",
		SubmitterEmail:  "seo.team@example.com",
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/submissions", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool                     `json:"success"`
		Data    CreateSubmissionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotEqual(t, uuid.Nil, resp.Data.SubmissionID)
	assert.NotEmpty(t, resp.Data.ComplianceID)

	stored := repo.Submissions[resp.Data.SubmissionID]
	require.NotNil(t, stored)
	assert.Equal(t, models.StageFormSubmitted, stored.WorkflowStage)
	assert.Equal(t, models.ProcessingPending, stored.AIProcessingStatus)
}

func TestCreateSubmission_MissingRequiredFields(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	mux := newSubmissionsMux(repo)

	body, _ := json.Marshal(CreateSubmissionRequest{ProductName: "Keytruda"})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/submissions", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "indication")
	assert.Empty(t, repo.Submissions, "invalid submissions never reach storage")
}

func TestCreateSubmission_InvalidJSON(t *testing.T) {
	mux := newSubmissionsMux(repositories.NewMockSubmissionRepository())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/submissions", bytes.NewReader([]byte("{not json"))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSubmission(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedRepoSubmission(repo)
	mux := newSubmissionsMux(repo)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions/"+sub.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), sub.ComplianceID)
	assert.Contains(t, rec.Body.String(), "seo_review")
}

func TestGetSubmission_NotFound(t *testing.T) {
	mux := newSubmissionsMux(repositories.NewMockSubmissionRepository())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSubmission_BadID(t *testing.T) {
	mux := newSubmissionsMux(repositories.NewMockSubmissionRepository())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSubmissions_FilterByStage(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	seedRepoSubmission(repo)
	other := seedRepoSubmission(repo)
	other.WorkflowStage = models.StageClientReview
	mux := newSubmissionsMux(repo)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions?stage=seo_review", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data SubmissionListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Total)
}

func TestListSubmissions_UnknownStage(t *testing.T) {
	mux := newSubmissionsMux(repositories.NewMockSubmissionRepository())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions?stage=bogus", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSubmissions_UnknownStatus(t *testing.T) {
	mux := newSubmissionsMux(repositories.NewMockSubmissionRepository())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions?status=bogus", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdvanceStage(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedRepoSubmission(repo)
	mux := newSubmissionsMux(repo)

	body, _ := json.Marshal(AdvanceStageRequest{Stage: models.StageClientReview})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/submissions/"+sub.ID.String()+"/advance", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.StageClientReview, sub.WorkflowStage)
}

func TestAdvanceStage_InvalidTransition(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedRepoSubmission(repo) // seo_review
	mux := newSubmissionsMux(repo)

	body, _ := json.Marshal(AdvanceStageRequest{Stage: models.StagePublished})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/submissions/"+sub.ID.String()+"/advance", bytes.NewReader(body)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid workflow transition")
	assert.Equal(t, models.StageSEOReview, sub.WorkflowStage, "stage unchanged after rejected transition")
}

func TestAdvanceStage_UnknownStage(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedRepoSubmission(repo)
	mux := newSubmissionsMux(repo)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/submissions/"+sub.ID.String()+"/advance",
		bytes.NewReader([]byte(`{"stage": "shipped"}`))))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWaitStatus_AlreadyCompleted(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedRepoSubmission(repo) // completed
	mux := newSubmissionsMux(repo)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions/"+sub.ID.String()+"/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, services.PollCompleted, resp.Data.Outcome)
	require.NotNil(t, resp.Data.Submission)
	assert.Equal(t, sub.ID, resp.Data.Submission.ID)
}

func TestWaitStatus_FailedPipeline(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedRepoSubmission(repo)
	sub.AIProcessingStatus = models.ProcessingFailed
	mux := newSubmissionsMux(repo)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions/"+sub.ID.String()+"/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, services.PollFailed, resp.Data.Outcome)
}

func TestWaitStatus_Timeout(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	sub := seedRepoSubmission(repo)
	sub.AIProcessingStatus = models.ProcessingRunning
	mux := newSubmissionsMux(repo)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions/"+sub.ID.String()+"/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool           `json:"success"`
		Data    StatusResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, services.PollTimeout, resp.Data.Outcome)
}

func TestWaitStatus_NotFound(t *testing.T) {
	repo := repositories.NewMockSubmissionRepository()
	mux := newSubmissionsMux(repo)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/submissions/"+uuid.NewString()+"/status", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
