package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/testutil"
)

func TestAPIKeyRepository_FirstActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAPIKeyRepository(db)

	none, err := repo.FirstActive("openai")
	require.NoError(t, err)
	assert.Nil(t, none)

	testutil.TestAPIKey(t, db, "sk-revoked-0000", model.APIKeyRevoked)
	active := testutil.TestAPIKey(t, db, "sk-active-1111", model.APIKeyActive)

	found, err := repo.FirstActive("openai")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, active.ID, found.ID)

	require.NoError(t, repo.IncrementUsage(found.ID, time.Now()))
	found, _ = repo.GetByID(found.ID)
	assert.Equal(t, int64(1), found.UsageCount)
	assert.NotNil(t, found.LastUsedAt)
}

func TestSettingRepository_GetCreatesDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSettingRepository(db)

	setting, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, int64(1), setting.ID)
	assert.Zero(t, setting.BasicPackageCredits)
	assert.Empty(t, setting.AIModel)

	require.NoError(t, repo.Update(map[string]interface{}{"ai_model": "gpt-4o-mini"}))
	setting, err = repo.Get()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", setting.AIModel)

	var count int64
	db.Model(&model.Setting{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestStatsRepository_Sums(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewStatsRepository(db)
	user := testutil.TestUser(t, db, testutil.WithCredits(10))
	testutil.TestUser(t, db, testutil.WithCredits(3), testutil.WithUnverified())

	credit := NewCreditRepository(db)
	require.NoError(t, credit.CreateTransaction(&model.CreditTransaction{
		UserID: user.ID, Amount: 100, Type: model.TransactionPurchase, ReferenceType: model.RefPayment,
	}))
	require.NoError(t, credit.CreateTransaction(&model.CreditTransaction{
		UserID: user.ID, Amount: -2, Type: model.TransactionUsage, ReferenceType: model.RefGeneration,
	}))

	total, _ := repo.CountUsers()
	active, _ := repo.CountVerifiedUsers()
	balances, _ := repo.SumBalances()
	used, _ := repo.SumUsage()
	revenue, _ := repo.SumRevenue()

	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(1), active)
	assert.Equal(t, int64(13), balances)
	assert.Equal(t, int64(2), used)
	// 注册赠送不计入收入
	assert.Equal(t, int64(100), revenue)
}
