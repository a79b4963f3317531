package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/research_go_server/config"
	"github.com/qs3c/research_go_server/internal/api/middleware"
	"github.com/qs3c/research_go_server/internal/pkg/ai"
	"github.com/qs3c/research_go_server/internal/pkg/email"
	"github.com/qs3c/research_go_server/internal/pkg/jwt"
	"github.com/qs3c/research_go_server/internal/pkg/response"
	"github.com/qs3c/research_go_server/internal/repository"
	"github.com/qs3c/research_go_server/internal/service"
	"github.com/qs3c/research_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testJWTSecret     = "test-secret-key"
	testStripeSecret  = "whsec_handler_test"
	testResendSecret  = "resend_handler_test"
	testSectionOutput = "نص مولد للاختبار"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (s *fakeSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

type fakeStream struct {
	fragments []string
	i         int
}

func (s *fakeStream) Recv() (string, error) {
	if s.i < len(s.fragments) {
		s.i++
		return s.fragments[s.i-1], nil
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error { return nil }

// fakeAI err 非空时每次调用都失败
type fakeAI struct {
	err error
}

func (f *fakeAI) CreateChatStream(context.Context, ai.ChatRequest) (ai.Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &fakeStream{fragments: []string{"نص مولد ", "للاختبار"}}, nil
}

type fakeCheckout struct {
	params *stripe.CheckoutSessionParams
}

func (f *fakeCheckout) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	return &stripe.CheckoutSession{ID: "cs_handler_1", URL: "https://checkout.stripe.com/c/cs_handler_1"}, nil
}

type testEnv struct {
	db       *gorm.DB
	engine   *gin.Engine
	ai       *fakeAI
	sender   *fakeSender
	checkout *fakeCheckout
	credits  *service.CreditService
}

func testConfig() *config.Config {
	return &config.Config{
		JWT:     config.JWTConfig{Secret: testJWTSecret, ExpireHours: 24},
		App:     config.AppConfig{BaseURL: "http://localhost:3000"},
		Credits: config.CreditsConfig{Initial: 13, ReservationTTLMinutes: 10},
		AI: config.AIConfig{
			Provider:     "openai",
			APIKey:       "sk-test",
			Model:        "gpt-3.5-turbo",
			MaxTokens:    2000,
			Temperature:  0.7,
			MaxRetries:   2,
			RetryDelayMs: 1,
		},
		Stripe: config.StripeConfig{
			WebhookSecret: testStripeSecret,
			SuccessURL:    "http://localhost:3000/success",
			CancelURL:     "http://localhost:3000/cancel",
		},
		Resend: config.ResendConfig{WebhookSecret: testResendSecret},
		Packages: map[string]config.CreditPackage{
			"basic": {Credits: 100, Price: 100, PriceID: "price_basic"},
			"pro":   {Credits: 250, Price: 200, PriceID: "price_pro"},
		},
	}
}

// setupEnv 组装全部服务与路由，路由结构与线上一致（不含限流）
func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := testConfig()
	logger := zap.NewNop()

	userRepo := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)

	credits := service.NewCreditService(userRepo, repository.NewCreditRepository(db), cfg, logger)
	sender := &fakeSender{}
	emails := service.NewEmailService(sender, cfg, logger)
	auth := service.NewAuthService(userRepo, credits, emails, nil, nil, cfg, logger)

	fake := &fakeAI{}
	keys := service.NewKeyResolver(settingRepo, apiKeyRepo, cfg)
	generation := service.NewGenerationService(credits, fake, keys, projectRepo, nil, cfg, logger)
	projects := service.NewProjectService(projectRepo, nil, logger)
	jobs := service.NewJobService(repository.NewJobRepository(db), projectRepo, nil, logger)

	checkout := &fakeCheckout{}
	payments := service.NewPaymentService(credits, userRepo, repository.NewEventRepository(db), settingRepo, checkout, cfg, logger)
	webhooks := service.NewWebhookService(userRepo, cfg, logger)
	admin := service.NewAdminService(userRepo, projectRepo, apiKeyRepo, settingRepo, repository.NewStatsRepository(db), credits, cfg, logger)

	authHandler := NewAuthHandler(auth, "")
	userHandler := NewUserHandler(service.NewUserService(userRepo, logger))
	creditHandler := NewCreditHandler(credits)
	generationHandler := NewGenerationHandler(generation, credits, projects, jobs)
	projectHandler := NewProjectHandler(projects)
	paymentHandler := NewPaymentHandler(payments, webhooks)
	emailHandler := NewEmailHandler(emails, auth)
	adminHandler := NewAdminHandler(admin)

	engine := gin.New()
	authMW := middleware.Auth(testJWTSecret)

	engine.POST("/api/webhooks/stripe", paymentHandler.StripeWebhook)
	engine.POST("/api/webhooks/resend", paymentHandler.ResendWebhook)

	legacy := engine.Group("/api", authMW)
	legacy.POST("/create-checkout-session", paymentHandler.CreateCheckoutSession)
	legacy.POST("/send-email", emailHandler.SendEmail)
	legacy.POST("/send-verification", emailHandler.SendVerification)

	v1 := engine.Group("/api/v1")
	v1.POST("/auth/register", authHandler.Register)
	v1.POST("/auth/login", authHandler.Login)
	v1.POST("/auth/verify-email", authHandler.VerifyEmail)
	v1.GET("/auth/github", authHandler.GithubAuth)
	v1.GET("/auth/github/callback", authHandler.GithubCallback)

	authed := v1.Group("", authMW)
	authed.GET("/user/profile", userHandler.GetProfile)
	authed.PUT("/user/profile", userHandler.UpdateProfile)
	authed.POST("/credits/use", creditHandler.Use)
	authed.GET("/credits/balance", creditHandler.Balance)
	authed.GET("/credits/history", creditHandler.History)

	gated := authed.Group("/openai", middleware.CreditGate(credits))
	gated.POST("/generate", generationHandler.Generate)
	gated.POST("/continue", generationHandler.Continue)
	gated.POST("/enhance", generationHandler.Enhance)
	gated.POST("/jobs", generationHandler.CreateJob)
	authed.GET("/openai/jobs/:id", generationHandler.GetJob)

	authed.POST("/projects", projectHandler.Create)
	authed.GET("/projects", projectHandler.List)
	authed.GET("/projects/:id", projectHandler.Get)
	authed.DELETE("/projects/:id", projectHandler.Delete)
	authed.PUT("/projects/:id/sections/:type", projectHandler.UpdateSection)
	authed.POST("/projects/:id/export", projectHandler.Export)

	adm := v1.Group("/admin", authMW, middleware.AdminOnly(userRepo))
	adm.GET("/stats", adminHandler.Stats)
	adm.GET("/usage", adminHandler.Usage)
	adm.GET("/users", adminHandler.ListUsers)
	adm.POST("/users", adminHandler.CreateUser)
	adm.PUT("/users/:id", adminHandler.UpdateUser)
	adm.DELETE("/users/:id", adminHandler.DeleteUser)
	adm.POST("/users/:id/credits", adminHandler.AdjustCredits)
	adm.GET("/users/:id/credits", adminHandler.CreditHistory)
	adm.POST("/rewards", adminHandler.RewardUsers)
	adm.GET("/api-keys", adminHandler.ListAPIKeys)
	adm.POST("/api-keys", adminHandler.CreateAPIKey)
	adm.PUT("/api-keys/:id", adminHandler.UpdateAPIKey)
	adm.DELETE("/api-keys/:id", adminHandler.DeleteAPIKey)
	adm.GET("/settings", adminHandler.GetSettings)
	adm.PUT("/settings", adminHandler.UpdateSettings)

	return &testEnv{
		db:       db,
		engine:   engine,
		ai:       fake,
		sender:   sender,
		checkout: checkout,
		credits:  credits,
	}
}

func tokenFor(t *testing.T, userID int64) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID, testJWTSecret, 24)
	require.NoError(t, err)
	return token
}

// do 发送请求，token 为空时不带认证头
func (e *testEnv) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		data, _ := json.Marshal(body)
		reqBody = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// dataMap 把 data 解析为 map
func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}
