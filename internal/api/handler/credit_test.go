package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/testutil"
)

func TestCreditHandler_BalanceAndUse(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db, testutil.WithCredits(2))
	token := tokenFor(t, user.ID)

	w := env.do(http.MethodGet, "/api/v1/credits/balance", token, nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, float64(2), dataMap(t, resp)["credits"])

	for want := 1; want >= 0; want-- {
		w = env.do(http.MethodPost, "/api/v1/credits/use", token, map[string]string{"description": "manual"})
		resp = parseResponse(t, w)
		require.Equal(t, response.CodeSuccess, resp.Code)
		assert.Equal(t, float64(want), dataMap(t, resp)["credits"])
	}

	// 余额为 0 时拒绝，不会变为负数
	w = env.do(http.MethodPost, "/api/v1/credits/use", token, nil)
	assert.Equal(t, response.CodeInsufficientCredits, parseResponse(t, w).Code)
}

func TestCreditHandler_History(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db, testutil.WithCredits(5))
	token := tokenFor(t, user.ID)

	for i := 0; i < 3; i++ {
		_, err := env.credits.UseCredit(user.ID, "usage")
		require.NoError(t, err)
	}

	w := env.do(http.MethodGet, "/api/v1/credits/history?page=1&page_size=2", token, nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := dataMap(t, resp)
	assert.Equal(t, float64(4), data["total"])
	items := data["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, float64(-1), items[0].(map[string]interface{})["amount"])
}

func TestCreditHandler_RequiresAuth(t *testing.T) {
	env := setupEnv(t)

	w := env.do(http.MethodGet, "/api/v1/credits/balance", "", nil)
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
}
