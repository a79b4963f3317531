package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/testutil"
)

func TestCreditRepository_ListTransactions_NewestFirst(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCreditRepository(db)
	user := testutil.TestUser(t, db, testutil.WithCredits(0))

	base := time.Now().Add(-time.Hour)
	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.CreateTransaction(&model.CreditTransaction{
			UserID:      user.ID,
			Amount:      i,
			Type:        model.TransactionPurchase,
			Description: "t",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}))
	}

	txs, total, err := repo.ListTransactions(user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, txs, 2)
	assert.Equal(t, 3, txs[0].Amount)
	assert.Equal(t, 2, txs[1].Amount)
}

func TestCreditRepository_FindMismatches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCreditRepository(db)
	ok := testutil.TestUser(t, db, testutil.WithCredits(5))
	bad := testutil.TestUser(t, db, testutil.WithCredits(5))

	// 绕过流水直接改余额
	require.NoError(t, db.Model(&model.User{}).Where("id = ?", bad.ID).Update("credits", 9).Error)

	rows, err := repo.FindMismatches()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, bad.ID, rows[0].UserID)
	assert.Equal(t, int64(9), rows[0].Credits)
	assert.Equal(t, int64(5), rows[0].LedgerSum)

	sum, err := repo.SumByUser(ok.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sum)
}

func TestCreditRepository_TransitionReservation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCreditRepository(db)
	user := testutil.TestUser(t, db)

	res := &model.CreditReservation{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Amount:    1,
		Status:    model.ReservationPending,
		ExpiresAt: time.Now().Add(time.Minute),
	}
	require.NoError(t, repo.CreateReservation(res))

	rows, err := repo.TransitionReservation(res.ID, model.ReservationPending, model.ReservationCommitted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// 已提交的不能再释放
	rows, err = repo.TransitionReservation(res.ID, model.ReservationPending, model.ReservationReleased)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	found, err := repo.GetReservation(res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCommitted, found.Status)
}

func TestCreditRepository_ListExpiredReservations(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCreditRepository(db)
	user := testutil.TestUser(t, db)
	now := time.Now()

	stale := &model.CreditReservation{ID: uuid.NewString(), UserID: user.ID, Amount: 1,
		Status: model.ReservationPending, ExpiresAt: now.Add(-time.Minute)}
	fresh := &model.CreditReservation{ID: uuid.NewString(), UserID: user.ID, Amount: 1,
		Status: model.ReservationPending, ExpiresAt: now.Add(time.Minute)}
	done := &model.CreditReservation{ID: uuid.NewString(), UserID: user.ID, Amount: 1,
		Status: model.ReservationCommitted, ExpiresAt: now.Add(-time.Minute)}
	for _, r := range []*model.CreditReservation{stale, fresh, done} {
		require.NoError(t, repo.CreateReservation(r))
	}

	list, err := repo.ListExpiredReservations(now, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, stale.ID, list[0].ID)
}

func TestEventRepository_MarkProcessed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewEventRepository(db)

	first, err := repo.MarkProcessed("stripe", "evt_1", "checkout.session.completed")
	require.NoError(t, err)
	assert.True(t, first)

	again, err := repo.MarkProcessed("stripe", "evt_1", "checkout.session.completed")
	require.NoError(t, err)
	assert.False(t, again)

	// 不同来源同一 id 互不影响
	other, err := repo.MarkProcessed("resend", "evt_1", "email.bounced")
	require.NoError(t, err)
	assert.True(t, other)

	exists, err := repo.Exists("stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, exists)
}
