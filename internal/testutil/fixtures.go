package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/internal/model"
)

var seq int64

func next() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestPassword 测试用户统一密码
const TestPassword = "password123"

var testPasswordHash = func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}()

// TestUser 创建测试用户，初始余额同时写入流水
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := next()
	hash := testPasswordHash
	user := &model.User{
		Name:         fmt.Sprintf("user%d", n),
		Email:        fmt.Sprintf("test_%d@example.com", n),
		PasswordHash: &hash,
		Avatar:       "U",
		Credits:      13,
		IsVerified:   true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	if user.Credits != 0 {
		tx := &model.CreditTransaction{
			UserID:        user.ID,
			Amount:        user.Credits,
			Type:          model.TransactionType(user.Credits),
			Description:   "initial credits",
			ReferenceType: model.RefSignup,
		}
		if err := db.Create(tx).Error; err != nil {
			t.Fatalf("Failed to create initial transaction: %v", err)
		}
	}

	return user
}

// WithName 设置用户名
func WithName(name string) func(*model.User) {
	return func(u *model.User) {
		u.Name = name
	}
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithCredits 设置余额
func WithCredits(credits int) func(*model.User) {
	return func(u *model.User) {
		u.Credits = credits
	}
}

// WithAdmin 设置为管理员
func WithAdmin() func(*model.User) {
	return func(u *model.User) {
		u.IsAdmin = true
	}
}

// WithUnverified 未验证邮箱
func WithUnverified() func(*model.User) {
	return func(u *model.User) {
		u.IsVerified = false
	}
}

// TestProject 创建带全部空章节的测试项目
func TestProject(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Project)) *model.Project {
	t.Helper()

	project := &model.Project{
		UserID:   userID,
		Title:    fmt.Sprintf("Test Project %d", next()),
		Language: "ar",
	}
	for _, opt := range opts {
		opt(project)
	}

	if err := db.Create(project).Error; err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}

	for _, st := range model.SectionTypes {
		section := &model.Section{ProjectID: project.ID, Type: st}
		if err := db.Create(section).Error; err != nil {
			t.Fatalf("Failed to create test section: %v", err)
		}
		project.Sections = append(project.Sections, *section)
	}

	return project
}

// WithTitle 设置项目标题
func WithTitle(title string) func(*model.Project) {
	return func(p *model.Project) {
		p.Title = title
	}
}

// TestJob 创建测试生成任务
func TestJob(t *testing.T, db *gorm.DB, userID int64, status string) *model.GenerationJob {
	t.Helper()

	job := &model.GenerationJob{
		UserID:  userID,
		Section: "abstract",
		Title:   "Deep Learning",
		Status:  status,
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}

// TestAPIKey 创建测试密钥
func TestAPIKey(t *testing.T, db *gorm.DB, key, status string) *model.APIKey {
	t.Helper()

	apiKey := &model.APIKey{
		Name:     fmt.Sprintf("key%d", next()),
		Provider: "openai",
		Key:      key,
		Status:   status,
	}
	if err := db.Create(apiKey).Error; err != nil {
		t.Fatalf("Failed to create test api key: %v", err)
	}

	return apiKey
}
