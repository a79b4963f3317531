package database

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/internal/model"
)

type seedUser struct {
	name     string
	email    string
	password string
	credits  int
	isAdmin  bool
}

var seedUsers = []seedUser{
	{name: "Demo User", email: "demo@example.com", password: "password123", credits: 13},
	{name: "Admin", email: "admin@example.com", password: "admin123", credits: 999, isAdmin: true},
}

// Seed 写入演示账号和默认设置，可重复执行
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, su := range seedUsers {
			if err := seedOne(tx, su); err != nil {
				return err
			}
		}

		setting := model.DefaultSetting()
		return tx.Where(model.Setting{ID: setting.ID}).FirstOrCreate(setting).Error
	})
}

func seedOne(tx *gorm.DB, su seedUser) error {
	var count int64
	if err := tx.Model(&model.User{}).Where("email = ?", su.email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	hashStr := string(hash)

	user := &model.User{
		Name:         su.name,
		Email:        su.email,
		PasswordHash: &hashStr,
		Avatar:       model.DefaultAvatar(su.name),
		Credits:      su.credits,
		IsAdmin:      su.isAdmin,
		IsVerified:   true,
	}
	if err := tx.Create(user).Error; err != nil {
		return err
	}

	// 初始余额同样记一笔流水，保证对账
	return tx.Create(&model.CreditTransaction{
		UserID:        user.ID,
		Amount:        su.credits,
		Type:          model.TransactionType(su.credits),
		Description:   "initial credits",
		ReferenceType: model.RefSignup,
	}).Error
}
