package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx 返回绑定到事务的副本
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByGithubID(githubID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("github_id = ?", githubID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByVerificationToken(token string) (*model.User, error) {
	var user model.User
	err := r.db.Where("verification_token = ?", token).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

// AddCredits 条件更新余额，结果不能为负；返回受影响行数
func (r *UserRepository) AddCredits(id int64, amount int) (int64, error) {
	result := r.db.Model(&model.User{}).
		Where("id = ? AND credits + ? >= 0", id, amount).
		Update("credits", gorm.Expr("credits + ?", amount))
	return result.RowsAffected, result.Error
}

func (r *UserRepository) GetCredits(id int64) (int, error) {
	var user model.User
	err := r.db.Select("id", "credits").Where("id = ?", id).First(&user).Error
	if err != nil {
		return 0, err
	}
	return user.Credits, nil
}

// MarkUnverifiedByEmail 邮件退信后取消验证状态
func (r *UserRepository) MarkUnverifiedByEmail(emails []string) (int64, error) {
	result := r.db.Model(&model.User{}).Where("email IN ?", emails).Update("is_verified", false)
	return result.RowsAffected, result.Error
}

// ClearExpiredVerificationTokens 清理过期验证令牌
func (r *UserRepository) ClearExpiredVerificationTokens(now time.Time) (int64, error) {
	result := r.db.Model(&model.User{}).
		Where("verification_token IS NOT NULL AND verification_expires_at < ?", now).
		Updates(map[string]interface{}{
			"verification_token":      nil,
			"verification_expires_at": nil,
		})
	return result.RowsAffected, result.Error
}

func (r *UserRepository) List(page, pageSize int) ([]*model.User, int64, error) {
	var users []*model.User
	var total int64

	if err := r.db.Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("created_at DESC, id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&users).Error
	return users, total, err
}

// ListRewardableIDs 非管理员用户，since 不为空时只取此后注册的
func (r *UserRepository) ListRewardableIDs(since *time.Time) ([]int64, error) {
	query := r.db.Model(&model.User{}).Where("is_admin = ?", false)
	if since != nil {
		query = query.Where("created_at >= ?", *since)
	}
	var ids []int64
	err := query.Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *UserRepository) Delete(id int64) error {
	return r.db.Delete(&model.User{}, id).Error
}

func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}
