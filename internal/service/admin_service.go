package service

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/repository"
)

var (
	ErrCannotDeleteAdmin = errors.New("لا يمكن حذف حساب المسؤول")
	ErrAPIKeyNotFound    = errors.New("المفتاح غير موجود")
)

const (
	defaultUsageDays = 30
	maxUsageDays     = 365
	newUserWindow    = 30 * 24 * time.Hour
)

type AdminService struct {
	userRepo    *repository.UserRepository
	projectRepo *repository.ProjectRepository
	apiKeyRepo  *repository.APIKeyRepository
	settingRepo *repository.SettingRepository
	statsRepo   *repository.StatsRepository
	credits     *CreditService
	cfg         *config.Config
	logger      *zap.Logger
}

func NewAdminService(
	userRepo *repository.UserRepository,
	projectRepo *repository.ProjectRepository,
	apiKeyRepo *repository.APIKeyRepository,
	settingRepo *repository.SettingRepository,
	statsRepo *repository.StatsRepository,
	credits *CreditService,
	cfg *config.Config,
	logger *zap.Logger,
) *AdminService {
	return &AdminService{
		userRepo:    userRepo,
		projectRepo: projectRepo,
		apiKeyRepo:  apiKeyRepo,
		settingRepo: settingRepo,
		statsRepo:   statsRepo,
		credits:     credits,
		cfg:         cfg,
		logger:      logger,
	}
}

// GetStats 概览数据
func (s *AdminService) GetStats() (*dto.StatsResponse, error) {
	var (
		stats dto.StatsResponse
		err   error
	)
	if stats.TotalUsers, err = s.statsRepo.CountUsers(); err != nil {
		return nil, err
	}
	if stats.ActiveUsers, err = s.statsRepo.CountVerifiedUsers(); err != nil {
		return nil, err
	}
	if stats.TotalCredits, err = s.statsRepo.SumBalances(); err != nil {
		return nil, err
	}
	if stats.CreditsUsed, err = s.statsRepo.SumUsage(); err != nil {
		return nil, err
	}
	if stats.Revenue, err = s.statsRepo.SumRevenue(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetUsageStats 最近 N 天按天汇总，按日期升序
func (s *AdminService) GetUsageStats(days int, now time.Time) ([]dto.DailyUsage, error) {
	if days <= 0 {
		days = defaultUsageDays
	}
	if days > maxUsageDays {
		days = maxUsageDays
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))
	txs, err := s.statsRepo.ListTransactionsSince(start)
	if err != nil {
		return nil, err
	}

	out := make([]dto.DailyUsage, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		out[i].Date = date
		index[date] = i
	}

	for _, tx := range txs {
		i, ok := index[tx.CreatedAt.In(now.Location()).Format("2006-01-02")]
		if !ok {
			continue
		}
		switch {
		case tx.Type == model.TransactionUsage:
			out[i].Credits += int64(-tx.Amount)
			if tx.ReferenceType == model.RefGeneration {
				out[i].APICalls++
			}
		case tx.Type == model.TransactionPurchase && tx.ReferenceType == model.RefPayment:
			out[i].Revenue += int64(tx.Amount)
		}
	}
	return out, nil
}

func (s *AdminService) ListUsers(page, pageSize int) ([]*dto.UserInfo, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	users, total, err := s.userRepo.List(page, pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*dto.UserInfo, 0, len(users))
	for _, u := range users {
		out = append(out, BuildUserInfo(u))
	}
	return out, total, nil
}

// CreateUser 初始额度同样写入流水
func (s *AdminService) CreateUser(req *dto.AdminCreateUserRequest) (*dto.UserInfo, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hash := string(hashed)

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: &hash,
		Avatar:       model.DefaultAvatar(req.Name),
		IsAdmin:      req.IsAdmin,
		IsVerified:   req.IsVerified,
	}

	err = s.credits.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).Create(user); err != nil {
			return err
		}
		if req.Credits <= 0 {
			return nil
		}
		balance, err := s.credits.AdjustCreditsTx(tx, user.ID, req.Credits, "initial credits", CreditMeta{ReferenceType: model.RefAdmin})
		user.Credits = balance
		return err
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrEmailExists
	}
	if err != nil {
		return nil, err
	}
	return BuildUserInfo(user), nil
}

func (s *AdminService) UpdateUser(userID int64, req *dto.AdminUpdateUserRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			exists, err := s.userRepo.ExistsByEmail(email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ErrEmailExists
			}
			fields["email"] = email
		}
	}
	if req.IsVerified != nil {
		fields["is_verified"] = *req.IsVerified
	}
	if req.IsAdmin != nil {
		fields["is_admin"] = *req.IsAdmin
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(userID, fields); err != nil {
			return nil, err
		}
	}

	user, err = s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}
	return BuildUserInfo(user), nil
}

// DeleteUser 删除用户及其项目，流水保留
func (s *AdminService) DeleteUser(userID int64) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.IsAdmin {
		return ErrCannotDeleteAdmin
	}

	return s.projectRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.projectRepo.WithTx(tx).DeleteByUser(userID); err != nil {
			return err
		}
		if _, err := s.credits.CloseReservationsTx(tx, userID); err != nil {
			return err
		}
		return s.userRepo.WithTx(tx).Delete(userID)
	})
}

// AdjustUserCredits 后台加减额度
func (s *AdminService) AdjustUserCredits(userID int64, amount int, description string) (int, error) {
	if description == "" {
		description = "admin adjustment"
	}
	balance, err := s.credits.AdjustCreditsWithMeta(userID, amount, description, CreditMeta{ReferenceType: model.RefAdmin})
	if err != nil {
		return 0, err
	}
	s.logger.Info("admin adjusted credits", zap.Int64("user_id", userID), zap.Int("amount", amount))
	return balance, nil
}

// RewardUsers 给所有非管理员用户加额度，newOnly 时只奖励近 30 天注册的用户；全部在一个事务内
func (s *AdminService) RewardUsers(amount int, description string, newOnly bool, now time.Time) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if description == "" {
		description = "مكافأة ترحيبية"
	}

	rewarded := 0
	err := s.credits.Transaction(func(tx *gorm.DB) error {
		var since *time.Time
		if newOnly {
			t := now.Add(-newUserWindow)
			since = &t
		}
		ids, err := s.userRepo.WithTx(tx).ListRewardableIDs(since)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := s.credits.AdjustCreditsTx(tx, id, amount, description, CreditMeta{ReferenceType: model.RefAdmin}); err != nil {
				return err
			}
		}
		rewarded = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("users rewarded",
		zap.Int("amount", amount),
		zap.Int("users", rewarded),
		zap.Bool("new_only", newOnly),
	)
	return rewarded, nil
}

func (s *AdminService) GetUserCreditHistory(userID int64, page, pageSize int) ([]*model.CreditTransaction, int64, error) {
	if _, err := s.credits.GetBalance(userID); err != nil {
		return nil, 0, err
	}
	return s.credits.GetHistory(userID, page, pageSize)
}

func toAPIKeyInfo(k *model.APIKey) *dto.APIKeyInfo {
	return &dto.APIKeyInfo{
		ID:         k.ID,
		Name:       k.Name,
		Provider:   k.Provider,
		Key:        k.MaskedKey(),
		Status:     k.Status,
		UsageCount: k.UsageCount,
		LastUsedAt: k.LastUsedAt,
		CreatedAt:  k.CreatedAt,
	}
}

func (s *AdminService) ListAPIKeys() ([]*dto.APIKeyInfo, error) {
	keys, err := s.apiKeyRepo.List()
	if err != nil {
		return nil, err
	}
	out := make([]*dto.APIKeyInfo, 0, len(keys))
	for _, k := range keys {
		out = append(out, toAPIKeyInfo(k))
	}
	return out, nil
}

func (s *AdminService) CreateAPIKey(req *dto.CreateAPIKeyRequest) (*dto.APIKeyInfo, error) {
	provider := req.Provider
	if provider == "" {
		provider = "openai"
	}
	key := &model.APIKey{
		Name:     strings.TrimSpace(req.Name),
		Provider: provider,
		Key:      strings.TrimSpace(req.Key),
		Status:   model.APIKeyActive,
	}
	if err := s.apiKeyRepo.Create(key); err != nil {
		return nil, err
	}
	return toAPIKeyInfo(key), nil
}

func (s *AdminService) UpdateAPIKey(id int64, req *dto.UpdateAPIKeyRequest) (*dto.APIKeyInfo, error) {
	if _, err := s.apiKeyRepo.GetByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Status != nil {
		fields["status"] = *req.Status
	}
	if len(fields) > 0 {
		if err := s.apiKeyRepo.UpdateFields(id, fields); err != nil {
			return nil, err
		}
	}

	key, err := s.apiKeyRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	return toAPIKeyInfo(key), nil
}

func (s *AdminService) DeleteAPIKey(id int64) error {
	rows, err := s.apiKeyRepo.Delete(id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// GetSettings 返回生效值，未设置的字段取配置文件
func (s *AdminService) GetSettings() (*model.Setting, error) {
	return effectiveSettings(s.settingRepo, s.cfg)
}

// UpdateSettings 只修改请求中出现的字段
func (s *AdminService) UpdateSettings(req *dto.UpdateSettingsRequest) (*model.Setting, error) {
	fields := map[string]interface{}{}
	if req.BasicPackageCredits != nil {
		fields["basic_package_credits"] = *req.BasicPackageCredits
	}
	if req.BasicPackagePrice != nil {
		fields["basic_package_price"] = *req.BasicPackagePrice
	}
	if req.ProPackageCredits != nil {
		fields["pro_package_credits"] = *req.ProPackageCredits
	}
	if req.ProPackagePrice != nil {
		fields["pro_package_price"] = *req.ProPackagePrice
	}
	if req.AIModel != nil {
		fields["ai_model"] = *req.AIModel
	}
	if req.MaxTokens != nil {
		fields["max_tokens"] = *req.MaxTokens
	}
	if req.Temperature != nil {
		fields["temperature"] = *req.Temperature
	}
	if req.OpenAIAPIKey != nil {
		fields["openai_api_key"] = strings.TrimSpace(*req.OpenAIAPIKey)
	}

	if len(fields) > 0 {
		if err := s.settingRepo.Update(fields); err != nil {
			return nil, err
		}
	}
	return s.GetSettings()
}
