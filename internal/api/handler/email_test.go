package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/testutil"
)

func TestEmailHandler_SendEmail(t *testing.T) {
	env := setupEnv(t)
	user := testutil.TestUser(t, env.db)
	token := tokenFor(t, user.ID)

	w := env.do(http.MethodPost, "/api/send-email", token, dto.SendEmailRequest{
		To:      "reader@example.com",
		Subject: "مرحباً",
		HTML:    "<p>نص</p>",
	})
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)
	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, "reader@example.com", env.sender.sent[0].To)
	assert.Equal(t, "مرحباً", env.sender.sent[0].Subject)

	w = env.do(http.MethodPost, "/api/send-email", token, map[string]string{"to": "reader@example.com"})
	assert.Equal(t, response.CodeParamError, parseResponse(t, w).Code)
	assert.Len(t, env.sender.sent, 1)
}

func TestEmailHandler_SendVerification(t *testing.T) {
	env := setupEnv(t)
	unverified := testutil.TestUser(t, env.db, testutil.WithUnverified())
	verified := testutil.TestUser(t, env.db)

	w := env.do(http.MethodPost, "/api/send-verification", tokenFor(t, unverified.ID), nil)
	require.Equal(t, response.CodeSuccess, parseResponse(t, w).Code)
	require.Len(t, env.sender.sent, 1)
	assert.Equal(t, unverified.Email, env.sender.sent[0].To)

	var u model.User
	require.NoError(t, env.db.First(&u, unverified.ID).Error)
	require.NotNil(t, u.VerificationToken)
	assert.Contains(t, env.sender.sent[0].HTML, *u.VerificationToken)

	w = env.do(http.MethodPost, "/api/send-verification", tokenFor(t, verified.ID), nil)
	assert.Equal(t, response.CodeDuplicateAction, parseResponse(t, w).Code)

	w = env.do(http.MethodPost, "/api/send-verification", tokenFor(t, 99999), nil)
	assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
}
