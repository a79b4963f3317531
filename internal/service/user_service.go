package service

import (
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/internal/model"
	"github.com/qs3c/research_go_server/internal/model/dto"
	"github.com/qs3c/research_go_server/internal/repository"
)

type UserService struct {
	userRepo *repository.UserRepository
	logger   *zap.Logger
}

func NewUserService(userRepo *repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetProfile 获取用户详情
func (s *UserService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return BuildUserInfo(user), nil
}

// UpdateProfile 修改姓名，默认头像随姓名首字母更新
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != "" && name != user.Name {
			// 只有默认头像才跟着改，GitHub 头像保留
			if user.Avatar == model.DefaultAvatar(user.Name) {
				user.Avatar = model.DefaultAvatar(name)
			}
			user.Name = name
		}
	}

	if err := s.userRepo.UpdateFields(user.ID, map[string]interface{}{
		"name":   user.Name,
		"avatar": user.Avatar,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", zap.Int64("user_id", user.ID))
	return BuildUserInfo(user), nil
}
