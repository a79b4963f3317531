package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/pkg/jwt"
	"github.com/qs3c/research_go_server/internal/pkg/oauth"
	"github.com/qs3c/research_go_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("البريد الإلكتروني مسجل مسبقاً")
	ErrInvalidCredentials = errors.New("البريد الإلكتروني أو كلمة المرور غير صحيحة")
	ErrInvalidVerifyToken = errors.New("رابط التحقق غير صالح أو منتهي الصلاحية")
	ErrAlreadyVerified    = errors.New("تم التحقق من البريد الإلكتروني مسبقاً")
	ErrUserNotFound       = errors.New("المستخدم غير موجود")
	ErrOAuthUnavailable   = errors.New("تسجيل الدخول عبر GitHub غير متاح حالياً")
	ErrInvalidOAuthState  = errors.New("طلب تسجيل الدخول غير صالح، يرجى المحاولة مجدداً")
)

const verificationTTL = 24 * time.Hour

type AuthService struct {
	userRepo    *repository.UserRepository
	credits     *CreditService
	emails      *EmailService
	githubOAuth *oauth.GithubOAuth
	states      *oauth.StateStore
	cfg         *config.Config
	logger      *zap.Logger
}

func NewAuthService(
	userRepo *repository.UserRepository,
	credits *CreditService,
	emails *EmailService,
	githubOAuth *oauth.GithubOAuth,
	states *oauth.StateStore,
	cfg *config.Config,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		credits:     credits,
		emails:      emails,
		githubOAuth: githubOAuth,
		states:      states,
		cfg:         cfg,
		logger:      logger,
	}
}

func (s *AuthService) initialCredits() int {
	if s.cfg.Credits.Initial > 0 {
		return s.cfg.Credits.Initial
	}
	return 13
}

// createWithCredits 创建用户并通过流水发放初始额度；并发注册撞上唯一索引时返回 ErrEmailExists
func (s *AuthService) createWithCredits(user *model.User, credits int, description string) error {
	err := s.credits.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).Create(user); err != nil {
			return err
		}
		if credits <= 0 {
			return nil
		}
		balance, err := s.credits.AdjustCreditsTx(tx, user.ID, credits, description, CreditMeta{ReferenceType: model.RefSignup})
		if err != nil {
			return err
		}
		user.Credits = balance
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailExists
	}
	return err
}

// Register 用户注册
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
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

	token, err := generateRandomToken(32)
	if err != nil {
		return nil, err
	}

	hash := string(hashed)
	expiresAt := time.Now().Add(verificationTTL)
	user := &model.User{
		Name:                  strings.TrimSpace(req.Name),
		Email:                 email,
		PasswordHash:          &hash,
		Avatar:                model.DefaultAvatar(req.Name),
		VerificationToken:     &token,
		VerificationExpiresAt: &expiresAt,
	}

	if err := s.createWithCredits(user, s.initialCredits(), "initial credits"); err != nil {
		return nil, err
	}

	// 邮件发送失败不影响注册
	if s.emails != nil {
		_ = s.emails.SendVerification(ctx, user.Email, user.Name, token)
	}

	return &dto.RegisterResponse{
		UserID:  user.ID,
		Credits: user.Credits,
	}, nil
}

// Login 用户登录，未验证邮箱也允许登录
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(user)
}

// VerifyEmail 验证邮箱
func (s *AuthService) VerifyEmail(token string) (*dto.LoginResponse, error) {
	if token == "" {
		return nil, ErrInvalidVerifyToken
	}

	user, err := s.userRepo.GetByVerificationToken(token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidVerifyToken
		}
		return nil, err
	}

	if user.VerificationExpiresAt == nil || time.Now().After(*user.VerificationExpiresAt) {
		return nil, ErrInvalidVerifyToken
	}

	if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"is_verified":             true,
		"verification_token":      nil,
		"verification_expires_at": nil,
	}); err != nil {
		return nil, err
	}
	user.IsVerified = true
	user.VerificationToken = nil
	user.VerificationExpiresAt = nil

	return s.issueToken(user)
}

// SendVerification 重新生成令牌并发送验证邮件
func (s *AuthService) SendVerification(ctx context.Context, userID int64) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if user.IsVerified {
		return ErrAlreadyVerified
	}

	token, err := generateRandomToken(32)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"verification_token":      token,
		"verification_expires_at": time.Now().Add(verificationTTL),
	}); err != nil {
		return err
	}

	return s.emails.SendVerification(ctx, user.Email, user.Name, token)
}

// GetGithubAuthURL 生成 state 并返回授权地址
func (s *AuthService) GetGithubAuthURL(ctx context.Context) (string, error) {
	if s.githubOAuth == nil || !s.githubOAuth.Configured() || s.states == nil {
		return "", ErrOAuthUnavailable
	}
	state, err := s.states.New(ctx)
	if err != nil {
		return "", err
	}
	return s.githubOAuth.GetAuthURL(state), nil
}

// GithubCallback 处理 GitHub OAuth 回调
func (s *AuthService) GithubCallback(ctx context.Context, code, state string) (*dto.LoginResponse, error) {
	if s.githubOAuth == nil || s.states == nil {
		return nil, ErrOAuthUnavailable
	}
	ok, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidOAuthState
	}

	token, err := s.githubOAuth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	githubUser, err := s.githubOAuth.GetUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get github user: %w", err)
	}

	user, err := s.findOrCreateGithubUser(githubUser)
	if err != nil {
		return nil, err
	}
	return s.issueToken(user)
}

func (s *AuthService) findOrCreateGithubUser(gh *oauth.GithubUser) (*model.User, error) {
	githubID := fmt.Sprintf("%d", gh.ID)

	user, err := s.userRepo.GetByGithubID(githubID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := strings.ToLower(gh.Email)
	if email == "" {
		email = fmt.Sprintf("%s@users.noreply.github.com", githubID)
	}

	// 邮箱已注册则绑定到已有账号
	existing, err := s.userRepo.GetByEmail(email)
	if err == nil {
		if err := s.userRepo.UpdateFields(existing.ID, map[string]interface{}{
			"github_id":   githubID,
			"is_verified": true,
		}); err != nil {
			return nil, err
		}
		existing.GithubID = &githubID
		existing.IsVerified = true
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	name := gh.DisplayName()
	user = &model.User{
		Name:       name,
		Email:      email,
		Avatar:     model.DefaultAvatar(name),
		GithubID:   &githubID,
		IsVerified: true,
	}
	if gh.AvatarURL != "" {
		user.Avatar = gh.AvatarURL
	}

	if err := s.createWithCredits(user, s.initialCredits(), "initial credits"); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("github user created", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *AuthService) issueToken(user *model.User) (*dto.LoginResponse, error) {
	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}
	return &dto.LoginResponse{
		Token: token,
		User:  BuildUserInfo(user),
	}, nil
}

// BuildUserInfo 返回给前端的用户信息
func BuildUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Avatar:     user.Avatar,
		IsVerified: user.IsVerified,
		IsAdmin:    user.IsAdmin,
		Credits:    user.Credits,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
	}
}

func generateRandomToken(length int) (string, error) {
	bytes := make([]byte, length/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
