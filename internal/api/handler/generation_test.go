package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/ai"
	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/service"
	"github.com/qs3c/research_go_server/internal/testutil"
)

func TestGenerationHandler_Generate(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db, testutil.WithCredits(3))
	project := testutil.TestProject(t, env.db, user.ID)

	w := env.do(http.MethodPost, "/api/v1/openai/generate", tokenFor(t, user.ID), dto.GenerateRequest{
		Section:   "abstract",
		Title:     "الطاقة الشمسية",
		ProjectID: project.ID,
	})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := dataMap(t, resp)
	assert.Equal(t, testSectionOutput, data["content"])
	assert.Equal(t, float64(2), data["credits"])

	var tx model.CreditTransaction
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", user.ID, model.TransactionUsage).First(&tx).Error)
	assert.Equal(t, project.Title, tx.ProjectTitle)
	assert.Equal(t, "abstract", tx.Section)
}

func TestGenerationHandler_Generate_ProviderFailureRefunds(t *testing.T) {
	env := setupEnv(t)
	env.ai.err = &ai.APIError{StatusCode: 429, Code: "rate_limit_exceeded"}
	user := testutil.TestUser(t, env.db, testutil.WithCredits(3))

	w := env.do(http.MethodPost, "/api/v1/openai/generate", tokenFor(t, user.ID), dto.GenerateRequest{
		Section: "abstract",
		Title:   "T",
	})
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeGenerationFailed, resp.Code)
	assert.Equal(t, "rate_limit_exceeded", dataMap(t, resp)["error_code"])

	balance, err := env.credits.GetBalance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, balance)
}

func TestGenerationHandler_Generate_Validation(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db, testutil.WithCredits(3))
	other := testutil.TestUser(t, env.db)
	project := testutil.TestProject(t, env.db, other.ID)
	token := tokenFor(t, user.ID)

	w := env.do(http.MethodPost, "/api/v1/openai/generate", token, dto.GenerateRequest{Section: "abstract", Title: ""})
	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeParamError, resp.Code)
	assert.Equal(t, service.CodeTitleRequired, dataMap(t, resp)["error_code"])

	w = env.do(http.MethodPost, "/api/v1/openai/generate", token, dto.GenerateRequest{Section: "abstract", Title: "T", ProjectID: project.ID})
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)

	w = env.do(http.MethodPost, "/api/v1/openai/generate", token, map[string]string{"title": "T"})
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
}

func TestGenerationHandler_CreditGate(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db, testutil.WithCredits(0))

	w := env.do(http.MethodPost, "/api/v1/openai/generate", tokenFor(t, user.ID), dto.GenerateRequest{Section: "abstract", Title: "T"})
	assert.Equal(t, response.CodeInsufficientCredits, parseResponse(t, w).Code)
}

func TestGenerationHandler_ContinueAndEnhance(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db, testutil.WithCredits(5))
	token := tokenFor(t, user.ID)

	w := env.do(http.MethodPost, "/api/v1/openai/continue", token, dto.ContinueRequest{Title: "T", Content: "بداية النص"})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, float64(4), dataMap(t, resp)["credits"])

	w = env.do(http.MethodPost, "/api/v1/openai/enhance", token, dto.EnhanceRequest{Content: "نص يحتاج تحسين"})
	resp = parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, testSectionOutput, dataMap(t, resp)["content"])
	assert.Equal(t, float64(3), dataMap(t, resp)["credits"])
}

func TestGenerationHandler_Jobs(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db, testutil.WithCredits(5))
	token := tokenFor(t, user.ID)

	// 测试环境没有队列
	w := env.do(http.MethodPost, "/api/v1/openai/jobs", token, dto.CreateJobRequest{Section: "abstract", Title: "T"})
	assert.Equal(t, response.CodeServerError, parseResponse(t, w).Code)

	job := testutil.TestJob(t, env.db, user.ID, model.JobCompleted)
	w = env.do(http.MethodGet, fmt.Sprintf("/api/v1/openai/jobs/%d", job.ID), token, nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, model.JobCompleted, dataMap(t, resp)["status"])

	other := testutil.TestUser(t, env.db)
	w = env.do(http.MethodGet, fmt.Sprintf("/api/v1/openai/jobs/%d", job.ID), tokenFor(t, other.ID), nil)
	assert.Equal(t, response.CodeResourceNotFound, parseResponse(t, w).Code)

	w = env.do(http.MethodGet, "/api/v1/openai/jobs/abc", token, nil)
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
}
