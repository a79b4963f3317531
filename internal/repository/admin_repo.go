package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/internal/model"
)

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

func (r *APIKeyRepository) List() ([]*model.APIKey, error) {
	var keys []*model.APIKey
	err := r.db.Order("created_at DESC, id DESC").Find(&keys).Error
	return keys, err
}

func (r *APIKeyRepository) Create(key *model.APIKey) error {
	return r.db.Create(key).Error
}

func (r *APIKeyRepository) GetByID(id int64) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.Where("id = ?", id).First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *APIKeyRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.APIKey{}).Where("id = ?", id).Updates(fields).Error
}

func (r *APIKeyRepository) Delete(id int64) (int64, error) {
	result := r.db.Delete(&model.APIKey{}, id)
	return result.RowsAffected, result.Error
}

// FirstActive 最早创建的可用密钥，没有时返回 nil
func (r *APIKeyRepository) FirstActive(provider string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.Where("status = ? AND provider = ?", model.APIKeyActive, provider).
		Order("id ASC").
		First(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (r *APIKeyRepository) IncrementUsage(id int64, now time.Time) error {
	return r.db.Model(&model.APIKey{}).Where("id = ?", id).Updates(map[string]interface{}{
		"usage_count":  gorm.Expr("usage_count + 1"),
		"last_used_at": now,
	}).Error
}

type SettingRepository struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get 读取设置，不存在时写入默认值
func (r *SettingRepository) Get() (*model.Setting, error) {
	setting := model.DefaultSetting()
	err := r.db.Where(model.Setting{ID: setting.ID}).FirstOrCreate(setting).Error
	if err != nil {
		return nil, err
	}
	return setting, nil
}

func (r *SettingRepository) Update(fields map[string]interface{}) error {
	if _, err := r.Get(); err != nil {
		return err
	}
	return r.db.Model(&model.Setting{}).Where("id = ?", model.DefaultSetting().ID).Updates(fields).Error
}

type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) CountUsers() (int64, error) {
	var n int64
	err := r.db.Model(&model.User{}).Count(&n).Error
	return n, err
}

func (r *StatsRepository) CountVerifiedUsers() (int64, error) {
	var n int64
	err := r.db.Model(&model.User{}).Where("is_verified = ?", true).Count(&n).Error
	return n, err
}

func (r *StatsRepository) SumBalances() (int64, error) {
	var n int64
	err := r.db.Model(&model.User{}).Select("COALESCE(SUM(credits), 0)").Scan(&n).Error
	return n, err
}

// SumUsage 所有消耗流水的绝对值之和
func (r *StatsRepository) SumUsage() (int64, error) {
	var n int64
	err := r.db.Model(&model.CreditTransaction{}).
		Where("type = ?", model.TransactionUsage).
		Select("COALESCE(SUM(-amount), 0)").
		Scan(&n).Error
	return n, err
}

// SumRevenue 支付充值的额度合计
func (r *StatsRepository) SumRevenue() (int64, error) {
	var n int64
	err := r.db.Model(&model.CreditTransaction{}).
		Where("type = ? AND reference_type = ?", model.TransactionPurchase, model.RefPayment).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&n).Error
	return n, err
}

// ListTransactionsSince 统计区间内的流水
func (r *StatsRepository) ListTransactionsSince(since time.Time) ([]*model.CreditTransaction, error) {
	var txs []*model.CreditTransaction
	err := r.db.Select("id", "amount", "type", "reference_type", "created_at").
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&txs).Error
	return txs, err
}
