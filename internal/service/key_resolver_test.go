package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/pkg/ai"
	"github.com/qs3c/research_go_server/internal/repository"
	"github.com/qs3c/research_go_server/internal/testutil"
)

func TestKeyResolver_ModelSettings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	cfg := &config.Config{AI: config.AIConfig{Model: "gpt-4o", MaxTokens: 1500, Temperature: 0.5}}
	settings := repository.NewSettingRepository(db)
	r := NewKeyResolver(settings, repository.NewAPIKeyRepository(db), cfg)

	name, temp, maxTokens := r.ModelSettings()
	assert.Equal(t, "gpt-4o", name)
	assert.InDelta(t, 0.5, temp, 0.0001)
	assert.Equal(t, 1500, maxTokens)

	require.NoError(t, settings.Update(map[string]interface{}{"ai_model": "gpt-4o-mini", "max_tokens": 800}))
	name, temp, maxTokens = r.ModelSettings()
	assert.Equal(t, "gpt-4o-mini", name)
	assert.InDelta(t, 0.5, temp, 0.0001)
	assert.Equal(t, 800, maxTokens)
}

func TestKeyResolver_Resolve(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	cfg := &config.Config{}
	settings := repository.NewSettingRepository(db)
	r := NewKeyResolver(settings, repository.NewAPIKeyRepository(db), cfg)

	_, err := r.Resolve(context.Background())
	assert.ErrorIs(t, err, ai.ErrMissingAPIKey)

	cfg.AI.APIKey = "sk-config"
	key, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-config", key)

	row := testutil.TestAPIKey(t, db, "sk-row", model.APIKeyActive)
	key, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-row", key)

	stored, err := repository.NewAPIKeyRepository(db).GetByID(row.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.UsageCount)

	require.NoError(t, settings.Update(map[string]interface{}{"openai_api_key": "sk-settings"}))
	key, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sk-settings", key)
}
