package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

type User struct {
	ID                    int64      `gorm:"primaryKey" json:"id"`
	Name                  string     `gorm:"size:100;not null" json:"name"`
	Email                 string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash          *string    `gorm:"size:255" json:"-"`
	Avatar                string     `gorm:"size:500" json:"avatar"`
	Credits               int        `gorm:"not null;default:0" json:"credits"`
	IsAdmin               bool       `gorm:"default:false" json:"is_admin"`
	IsVerified            bool       `gorm:"default:false" json:"is_verified"`
	GithubID              *string    `gorm:"column:github_id;size:50;uniqueIndex" json:"-"`
	VerificationToken     *string    `gorm:"size:100;index" json:"-"`
	VerificationExpiresAt *time.Time `json:"-"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// DefaultAvatar 取名字首字母（大写）作为默认头像
func DefaultAvatar(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(name)
	return strings.ToUpper(string(r))
}
