package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/repository"
	"github.com/qs3c/research_go_server/internal/service"
	"github.com/qs3c/research_go_server/internal/testutil"
)

func setupCronService(t *testing.T, intervals Intervals) (*Service, *service.CreditService, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{Credits: config.CreditsConfig{Initial: 13, ReservationTTLMinutes: 10}}
	userRepo := repository.NewUserRepository(db)
	credits := service.NewCreditService(userRepo, repository.NewCreditRepository(db), cfg, zap.NewNop())

	return NewService(credits, userRepo, intervals, zap.NewNop()), credits, db
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(nil, nil, Intervals{}, nil)
	assert.Equal(t, DefaultIntervals(), svc.intervals)
	assert.NotNil(t, svc.stopChan)
	assert.NotNil(t, svc.logger)
}

func TestService_StartAndStop(t *testing.T) {
	svc, _, _ := setupCronService(t, Intervals{})

	svc.Start()
	time.Sleep(10 * time.Millisecond)
	svc.Stop()

	// 重复停止不会 panic
	svc.Stop()
}

func TestService_StopBeforeStart(t *testing.T) {
	svc, _, _ := setupCronService(t, Intervals{})
	svc.Stop()
}

func TestService_RunNow(t *testing.T) {
	svc, _, db := setupCronService(t, Intervals{})

	user := testutil.TestUser(t, db, testutil.WithCredits(5))
	mismatches, err := svc.RunNow()
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	// 绕过流水直接改余额
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", user.ID).Update("credits", 50).Error)

	mismatches, err = svc.RunNow()
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, user.ID, mismatches[0].UserID)
	assert.Equal(t, int64(50), mismatches[0].Credits)
	assert.Equal(t, int64(5), mismatches[0].LedgerSum)
}

func TestService_ReleasesExpiredReservations(t *testing.T) {
	svc, credits, db := setupCronService(t, Intervals{Release: 5 * time.Millisecond, Reconcile: time.Hour, Tokens: time.Hour})

	user := testutil.TestUser(t, db, testutil.WithCredits(3))
	res, err := credits.Reserve(user.ID, 1, "generate - abstract", service.CreditMeta{})
	require.NoError(t, err)
	require.NoError(t, db.Model(&model.CreditReservation{}).Where("id = ?", res.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	svc.Start()
	defer svc.Stop()

	assert.Eventually(t, func() bool {
		var r model.CreditReservation
		if err := db.First(&r, "id = ?", res.ID).Error; err != nil {
			return false
		}
		return r.Status == model.ReservationReleased
	}, time.Second, 10*time.Millisecond)

	balance, err := credits.GetBalance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, balance)
}

func TestService_ClearsExpiredTokens(t *testing.T) {
	svc, _, db := setupCronService(t, Intervals{Release: time.Hour, Reconcile: time.Hour, Tokens: 5 * time.Millisecond})

	token := "expired-token"
	past := time.Now().Add(-time.Hour)
	user := testutil.TestUser(t, db, testutil.WithUnverified())
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"verification_token":      token,
		"verification_expires_at": past,
	}).Error)

	svc.Start()
	defer svc.Stop()

	assert.Eventually(t, func() bool {
		var u model.User
		if err := db.First(&u, user.ID).Error; err != nil {
			return false
		}
		return u.VerificationToken == nil
	}, time.Second, 10*time.Millisecond)
}
