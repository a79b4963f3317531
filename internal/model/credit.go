package model

import (
	"time"
)

const (
	TransactionPurchase = "purchase"
	TransactionUsage    = "usage"
)

// 流水来源
const (
	RefSignup     = "signup"
	RefPayment    = "payment"
	RefGeneration = "generation"
	RefRefund     = "refund"
	RefAdmin      = "admin"
	RefUsage      = "usage"
)

// 预留状态
const (
	ReservationPending   = "pending"
	ReservationCommitted = "committed"
	ReservationReleased  = "released"
)

// CreditTransaction 余额变动流水，只追加不修改
type CreditTransaction struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	UserID        int64     `gorm:"not null;index" json:"user_id"`
	Amount        int       `gorm:"not null" json:"amount"`
	Type          string    `gorm:"size:20;not null;index" json:"type"`
	Description   string    `gorm:"size:255" json:"description"`
	ReferenceType string    `gorm:"size:20;index" json:"reference_type,omitempty"`
	ReferenceID   string    `gorm:"size:255;index" json:"reference_id,omitempty"`
	ProjectID     int64     `json:"project_id,omitempty"`
	ProjectTitle  string    `gorm:"size:255" json:"project_title,omitempty"`
	Section       string    `gorm:"size:30" json:"section,omitempty"`
	UsageType     string    `gorm:"size:20" json:"usage_type,omitempty"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}

// TransactionType 按金额正负决定流水类型
func TransactionType(amount int) string {
	if amount > 0 {
		return TransactionPurchase
	}
	return TransactionUsage
}

// CreditReservation 生成前预扣的额度，成功提交，失败释放
type CreditReservation struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      int64     `gorm:"not null;index" json:"user_id"`
	Amount      int       `gorm:"not null" json:"amount"`
	Status      string    `gorm:"size:20;not null;index" json:"status"`
	Description string    `gorm:"size:255" json:"description"`
	ExpiresAt   time.Time `gorm:"index" json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (CreditReservation) TableName() string {
	return "credit_reservations"
}
