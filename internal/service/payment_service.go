package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/repository"
)

var (
	ErrInvalidPackage          = errors.New("الباقة المطلوبة غير موجودة")
	ErrPriceNotConfigured      = errors.New("معرف السعر غير متوفر")
	ErrCheckoutFailed          = errors.New("فشل في إنشاء جلسة الدفع")
	ErrWebhookSignatureInvalid = errors.New("webhook signature verification failed")
	ErrWebhookMetadataMissing  = errors.New("missing user id or credits in session metadata")
	ErrWebhookNotConfigured    = errors.New("webhook secret not configured")
)

const ProviderStripe = "stripe"

// CheckoutSessionCreator 创建 Stripe 结账会话
type CheckoutSessionCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// NewStripeCheckout 使用密钥构造会话客户端
func NewStripeCheckout(secretKey string) CheckoutSessionCreator {
	return &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
}

type PaymentService struct {
	credits     *CreditService
	userRepo    *repository.UserRepository
	eventRepo   *repository.EventRepository
	settingRepo *repository.SettingRepository
	checkout    CheckoutSessionCreator
	cfg         *config.Config
	logger      *zap.Logger
}

func NewPaymentService(
	credits *CreditService,
	userRepo *repository.UserRepository,
	eventRepo *repository.EventRepository,
	settingRepo *repository.SettingRepository,
	checkout CheckoutSessionCreator,
	cfg *config.Config,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		credits:     credits,
		userRepo:    userRepo,
		eventRepo:   eventRepo,
		settingRepo: settingRepo,
		checkout:    checkout,
		cfg:         cfg,
		logger:      logger,
	}
}

// packageCredits 后台设置优先于配置文件
func (s *PaymentService) packageCredits(packageID string, pkg config.CreditPackage) int {
	setting, err := effectiveSettings(s.settingRepo, s.cfg)
	if err != nil {
		return pkg.Credits
	}
	switch packageID {
	case "basic":
		return setting.BasicPackageCredits
	case "pro":
		return setting.ProPackageCredits
	}
	return pkg.Credits
}

// CreateCheckoutSession 创建支付会话
func (s *PaymentService) CreateCheckoutSession(_ context.Context, userID int64, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	pkg, ok := s.cfg.Packages[req.PackageID]
	if !ok {
		return nil, ErrInvalidPackage
	}
	if pkg.PriceID == "" {
		return nil, ErrPriceNotConfigured
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = s.cfg.Stripe.SuccessURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = s.cfg.Stripe.CancelURL
	}

	credits := s.packageCredits(req.PackageID, pkg)
	if credits <= 0 {
		return nil, ErrPriceNotConfigured
	}
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(pkg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(strconv.FormatInt(userID, 10)),
	}
	params.AddMetadata("userId", strconv.FormatInt(userID, 10))
	params.AddMetadata("credits", strconv.Itoa(credits))
	params.AddMetadata("packageId", req.PackageID)

	sess, err := s.checkout.New(params)
	if err != nil {
		s.logger.Error("create checkout session failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, ErrCheckoutFailed
	}

	return &dto.CheckoutResponse{SessionID: sess.ID, URL: sess.URL}, nil
}

// HandleStripeWebhook 验签并处理事件；同一事件只入账一次
func (s *PaymentService) HandleStripeWebhook(_ context.Context, payload []byte, signature string) error {
	if s.cfg.Stripe.WebhookSecret == "" {
		return ErrWebhookNotConfigured
	}
	if signature == "" {
		return ErrWebhookSignatureInvalid
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.Stripe.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                webhook.DefaultTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.logger.Warn("stripe signature verification failed", zap.Error(err))
		return ErrWebhookSignatureInvalid
	}

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		s.logger.Debug("stripe event ignored", zap.String("event_type", string(event.Type)))
		return nil
	}

	var sess stripe.CheckoutSession
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &sess) != nil {
		return ErrWebhookMetadataMissing
	}

	userID, err := strconv.ParseInt(sess.Metadata["userId"], 10, 64)
	if err != nil || userID <= 0 {
		return ErrWebhookMetadataMissing
	}
	credits, err := strconv.Atoi(sess.Metadata["credits"])
	if err != nil || credits <= 0 {
		return ErrWebhookMetadataMissing
	}

	applied := false
	err = s.credits.Transaction(func(tx *gorm.DB) error {
		fresh, err := s.eventRepo.WithTx(tx).MarkProcessed(ProviderStripe, event.ID, string(event.Type))
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}
		_, err = s.credits.AdjustCreditsTx(tx, userID, credits, fmt.Sprintf("شراء %d رصيد", credits), CreditMeta{
			ReferenceType: model.RefPayment,
			ReferenceID:   sess.ID,
		})
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		s.logger.Error("apply stripe payment failed",
			zap.String("event_id", event.ID),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return err
	}

	if applied {
		s.logger.Info("credits purchased",
			zap.String("event_id", event.ID),
			zap.Int64("user_id", userID),
			zap.Int("credits", credits),
		)
	} else {
		s.logger.Info("duplicate stripe event acknowledged", zap.String("event_id", event.ID))
	}
	return nil
}
