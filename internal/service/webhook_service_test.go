package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/repository"
	"github.com/qs3c/research_go_server/internal/testutil"
)

func setupWebhookService(t *testing.T) (*WebhookService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{Resend: config.ResendConfig{WebhookSecret: "resend-secret"}}
	return NewWebhookService(repository.NewUserRepository(db), cfg, zap.NewNop()), db
}

func TestWebhookService_Resend_BounceUnverifies(t *testing.T) {
	svc, db := setupWebhookService(t)
	a := testutil.TestUser(t, db, testutil.WithEmail("a@example.com"))
	b := testutil.TestUser(t, db, testutil.WithEmail("b@example.com"))
	c := testutil.TestUser(t, db, testutil.WithEmail("c@example.com"))

	single := []byte(`{"type":"email.bounced","data":{"to":"a@example.com"}}`)
	require.NoError(t, svc.HandleResendWebhook(single, SignResend(single, "resend-secret")))

	multi := []byte(`{"type":"email.bounced","data":{"to":["B@example.com"]}}`)
	require.NoError(t, svc.HandleResendWebhook(multi, SignResend(multi, "resend-secret")))

	users := repository.NewUserRepository(db)
	for _, u := range []struct {
		id       int64
		verified bool
	}{{a.ID, false}, {b.ID, false}, {c.ID, true}} {
		got, err := users.GetByID(u.id)
		require.NoError(t, err)
		assert.Equal(t, u.verified, got.IsVerified)
	}
}

func TestWebhookService_Resend_Signature(t *testing.T) {
	svc, _ := setupWebhookService(t)
	payload := []byte(`{"type":"email.delivered","data":{"email_id":"e1"}}`)

	assert.ErrorIs(t, svc.HandleResendWebhook(payload, ""), ErrResendSignatureMissing)
	assert.ErrorIs(t, svc.HandleResendWebhook(payload, "bad"), ErrResendSignatureInvalid)
	assert.NoError(t, svc.HandleResendWebhook(payload, SignResend(payload, "resend-secret")))
}

func TestWebhookService_Resend_InvalidJSON(t *testing.T) {
	svc, _ := setupWebhookService(t)
	payload := []byte(`{not json`)

	err := svc.HandleResendWebhook(payload, SignResend(payload, "resend-secret"))
	assert.ErrorIs(t, err, ErrResendPayloadInvalid)
}
