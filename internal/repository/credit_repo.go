package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/internal/model"
)

type CreditRepository struct {
	db *gorm.DB
}

func NewCreditRepository(db *gorm.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

func (r *CreditRepository) WithTx(tx *gorm.DB) *CreditRepository {
	return &CreditRepository{db: tx}
}

// Transaction 在同一事务内执行 fn
func (r *CreditRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func (r *CreditRepository) CreateTransaction(t *model.CreditTransaction) error {
	return r.db.Create(t).Error
}

// ListTransactions 按时间倒序分页
func (r *CreditRepository) ListTransactions(userID int64, page, pageSize int) ([]*model.CreditTransaction, int64, error) {
	var txs []*model.CreditTransaction
	var total int64

	query := r.db.Model(&model.CreditTransaction{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error
	return txs, total, err
}

func (r *CreditRepository) SumByUser(userID int64) (int64, error) {
	var sum int64
	err := r.db.Model(&model.CreditTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}

// LedgerMismatch 流水合计与余额不一致的用户
type LedgerMismatch struct {
	UserID    int64
	Credits   int64
	LedgerSum int64
}

func (r *CreditRepository) FindMismatches() ([]LedgerMismatch, error) {
	var rows []LedgerMismatch
	err := r.db.Table("users AS u").
		Select("u.id AS user_id, u.credits AS credits, COALESCE(SUM(t.amount), 0) AS ledger_sum").
		Joins("LEFT JOIN credit_transactions AS t ON t.user_id = u.id").
		Group("u.id, u.credits").
		Having("COALESCE(SUM(t.amount), 0) <> u.credits").
		Scan(&rows).Error
	return rows, err
}

func (r *CreditRepository) CreateReservation(res *model.CreditReservation) error {
	return r.db.Create(res).Error
}

func (r *CreditRepository) GetReservation(id string) (*model.CreditReservation, error) {
	var res model.CreditReservation
	err := r.db.Where("id = ?", id).First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// TransitionReservation 仅当状态为 from 时改为 to；返回受影响行数
func (r *CreditRepository) TransitionReservation(id, from, to string) (int64, error) {
	result := r.db.Model(&model.CreditReservation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

// ReleaseByUser 关闭用户所有 pending 预留，不退款
func (r *CreditRepository) ReleaseByUser(userID int64) (int64, error) {
	result := r.db.Model(&model.CreditReservation{}).
		Where("user_id = ? AND status = ?", userID, model.ReservationPending).
		Update("status", model.ReservationReleased)
	return result.RowsAffected, result.Error
}

func (r *CreditRepository) ListExpiredReservations(now time.Time, limit int) ([]*model.CreditReservation, error) {
	var list []*model.CreditReservation
	err := r.db.Where("status = ? AND expires_at < ?", model.ReservationPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
