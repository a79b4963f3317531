package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/repository"
)

var (
	ErrInsufficientCredits = errors.New("رصيدك غير كافٍ، يرجى شراء رصيد إضافي")
	ErrInvalidAmount       = errors.New("قيمة الرصيد غير صالحة")
	ErrReservationNotFound = errors.New("الحجز غير موجود")
	ErrReservationClosed   = errors.New("تم إغلاق الحجز مسبقاً")
)

// RefundDescription 生成失败退款流水的描述
const RefundDescription = "refund - generation failed"

// CreditMeta 流水附加信息
type CreditMeta struct {
	ReferenceType string
	ReferenceID   string
	ProjectID     int64
	ProjectTitle  string
	Section       string
	UsageType     string
}

type CreditService struct {
	userRepo   *repository.UserRepository
	creditRepo *repository.CreditRepository
	cfg        *config.Config
	logger     *zap.Logger
}

func NewCreditService(
	userRepo *repository.UserRepository,
	creditRepo *repository.CreditRepository,
	cfg *config.Config,
	logger *zap.Logger,
) *CreditService {
	return &CreditService{
		userRepo:   userRepo,
		creditRepo: creditRepo,
		cfg:        cfg,
		logger:     logger,
	}
}

// Transaction 让调用方把余额变动并入自己的事务
func (s *CreditService) Transaction(fn func(tx *gorm.DB) error) error {
	return s.creditRepo.Transaction(fn)
}

// AdjustCredits 原子修改余额并记录流水，返回新余额
func (s *CreditService) AdjustCredits(userID int64, amount int, description string) (int, error) {
	meta := CreditMeta{ReferenceType: model.RefUsage}
	if amount > 0 {
		meta.ReferenceType = model.RefAdmin
	}
	return s.AdjustCreditsWithMeta(userID, amount, description, meta)
}

func (s *CreditService) AdjustCreditsWithMeta(userID int64, amount int, description string, meta CreditMeta) (int, error) {
	var balance int
	err := s.creditRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		balance, err = s.AdjustCreditsTx(tx, userID, amount, description, meta)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("credits adjusted",
		zap.Int64("user_id", userID),
		zap.Int("amount", amount),
		zap.Int("balance", balance),
		zap.String("reference_type", meta.ReferenceType),
	)
	return balance, nil
}

// AdjustCreditsTx 在调用方事务中修改余额，余额不会变为负数
func (s *CreditService) AdjustCreditsTx(tx *gorm.DB, userID int64, amount int, description string, meta CreditMeta) (int, error) {
	if amount == 0 {
		return 0, ErrInvalidAmount
	}

	users := s.userRepo.WithTx(tx)
	rows, err := users.AddCredits(userID, amount)
	if err != nil {
		return 0, err
	}
	if rows == 0 {
		// 区分用户不存在和余额不足
		if _, err := users.GetByID(userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return 0, ErrUserNotFound
			}
			return 0, err
		}
		return 0, ErrInsufficientCredits
	}

	if err := s.creditRepo.WithTx(tx).CreateTransaction(&model.CreditTransaction{
		UserID:        userID,
		Amount:        amount,
		Type:          model.TransactionType(amount),
		Description:   description,
		ReferenceType: meta.ReferenceType,
		ReferenceID:   meta.ReferenceID,
		ProjectID:     meta.ProjectID,
		ProjectTitle:  meta.ProjectTitle,
		Section:       meta.Section,
		UsageType:     meta.UsageType,
	}); err != nil {
		return 0, err
	}

	return users.GetCredits(userID)
}

// UseCredit 扣除 1 点
func (s *CreditService) UseCredit(userID int64, description string) (int, error) {
	if description == "" {
		description = "usage"
	}
	return s.AdjustCredits(userID, -1, description)
}

func (s *CreditService) GetBalance(userID int64) (int, error) {
	credits, err := s.userRepo.GetCredits(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrUserNotFound
	}
	return credits, err
}

// GetHistory 流水按时间倒序
func (s *CreditService) GetHistory(userID int64, page, pageSize int) ([]*model.CreditTransaction, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.creditRepo.ListTransactions(userID, page, pageSize)
}

// Reserve 预扣额度：扣款、记流水、写入 pending 预留，同一事务
func (s *CreditService) Reserve(userID int64, amount int, description string, meta CreditMeta) (*model.CreditReservation, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	ttl := time.Duration(s.cfg.Credits.ReservationTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	res := &model.CreditReservation{
		ID:          uuid.NewString(),
		UserID:      userID,
		Amount:      amount,
		Status:      model.ReservationPending,
		Description: description,
		ExpiresAt:   time.Now().Add(ttl),
	}
	if meta.ReferenceType == "" {
		meta.ReferenceType = model.RefGeneration
	}
	meta.ReferenceID = res.ID

	err := s.creditRepo.Transaction(func(tx *gorm.DB) error {
		if _, err := s.AdjustCreditsTx(tx, userID, -amount, description, meta); err != nil {
			return err
		}
		return s.creditRepo.WithTx(tx).CreateReservation(res)
	})
	if err != nil {
		return nil, err
	}

	return res, nil
}

// Commit 生成成功，确认扣款
func (s *CreditService) Commit(reservationID string) error {
	rows, err := s.creditRepo.TransitionReservation(reservationID, model.ReservationPending, model.ReservationCommitted)
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	res, err := s.creditRepo.GetReservation(reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReservationNotFound
		}
		return err
	}
	if res.Status == model.ReservationCommitted {
		return nil
	}
	return ErrReservationClosed
}

// Release 退还预留额度；重复调用不会重复退款，返回是否实际退款
func (s *CreditService) Release(reservationID, description string) (bool, error) {
	if description == "" {
		description = RefundDescription
	}

	released := false
	err := s.creditRepo.Transaction(func(tx *gorm.DB) error {
		credits := s.creditRepo.WithTx(tx)
		res, err := credits.GetReservation(reservationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrReservationNotFound
			}
			return err
		}

		rows, err := credits.TransitionReservation(reservationID, model.ReservationPending, model.ReservationReleased)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}

		_, err = s.AdjustCreditsTx(tx, res.UserID, res.Amount, description, CreditMeta{
			ReferenceType: model.RefRefund,
			ReferenceID:   res.ID,
		})
		if errors.Is(err, ErrUserNotFound) {
			// 用户已删除，只关闭预留
			s.logger.Warn("reservation closed without refund, user gone",
				zap.String("reservation_id", res.ID),
				zap.Int64("user_id", res.UserID),
			)
			return nil
		}
		if err != nil {
			return err
		}
		released = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if released {
		s.logger.Info("reservation released", zap.String("reservation_id", reservationID))
	}
	return released, nil
}

// CloseReservationsTx 删除用户时关闭其未结束的预留
func (s *CreditService) CloseReservationsTx(tx *gorm.DB, userID int64) (int64, error) {
	return s.creditRepo.WithTx(tx).ReleaseByUser(userID)
}

// ReleaseExpired 释放超时未结束的预留，返回释放数量
func (s *CreditService) ReleaseExpired(now time.Time) (int, error) {
	list, err := s.creditRepo.ListExpiredReservations(now, 500)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, res := range list {
		ok, err := s.Release(res.ID, RefundDescription)
		if err != nil {
			s.logger.Error("release expired reservation failed",
				zap.String("reservation_id", res.ID),
				zap.Int64("user_id", res.UserID),
				zap.Error(err),
			)
			continue
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// Reconcile 找出流水合计与余额不一致的用户
func (s *CreditService) Reconcile() ([]repository.LedgerMismatch, error) {
	mismatches, err := s.creditRepo.FindMismatches()
	if err != nil {
		return nil, err
	}
	for _, m := range mismatches {
		s.logger.Warn("ledger mismatch",
			zap.Int64("user_id", m.UserID),
			zap.Int64("credits", m.Credits),
			zap.Int64("ledger_sum", m.LedgerSum),
		)
	}
	return mismatches, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
