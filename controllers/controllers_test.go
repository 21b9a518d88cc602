package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"revisitly-backend/config"
	"revisitly-backend/models"
	"revisitly-backend/repository"
	"revisitly-backend/services"
	"revisitly-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	cronSecret    = "cron-secret"
	webhookSecret = "whsec_test"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	categories := make([]string, 0)
	for _, c := range models.Categories() {
		categories = append(categories, string(c))
	}
	if err := utils.RegisterValidators(categories); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type stubMailer struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (m *stubMailer) Send(context.Context, services.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.sent++
	return "msg-1", nil
}

type testEnv struct {
	router *gin.Engine
	store  *repository.Store
	mailer *stubMailer
	tokens *utils.TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, config.Migrate(db))

	store := repository.New(db)
	mailer := &stubMailer{}
	tokens := utils.NewTokenIssuer("test-secret", time.Hour)

	businesses := services.NewBusinessService(store, tokens)
	followups := services.NewFollowupService(store, mailer, nil, nil)
	checkins := services.NewCheckinService(store, followups, nil)
	sweeps := services.NewReengagementService(store, mailer, nil, cronSecret)
	billing := services.NewBillingService(store, nil, services.PriceMap{"price_pro": models.PlanPro}, nil)

	r := gin.New()
	auth := NewAuthController(businesses)
	biz := NewBusinessController(businesses)
	customers := NewCustomerController(businesses, checkins, followups)
	dashboard := NewDashboardController(businesses)

	r.POST("/auth/register", auth.Register)
	r.POST("/auth/login", auth.Login)
	r.GET("/auth/me", tokens.AuthMiddleware(), auth.Me)
	r.GET("/api/businesses/:slug", biz.GetBySlug)
	r.POST("/api/checkin", NewCheckinController(checkins).Checkin)
	r.GET("/api/cron/followup", NewCronController(sweeps).Followup)
	r.POST("/api/cron/followup", NewCronController(sweeps).Followup)
	r.POST("/api/webhooks/stripe", NewWebhookController(billing, webhookSecret).Stripe)

	owner := r.Group("/api", tokens.AuthMiddleware())
	owner.GET("/business", biz.GetSettings)
	owner.PUT("/business", biz.UpdateSettings)
	owner.GET("/dashboard", RequireActivePlan(businesses), dashboard.GetDashboardOverview)
	gated := owner.Group("/customers", RequireActivePlan(businesses))
	gated.GET("", customers.GetCustomers)
	gated.POST("", customers.CreateCustomer)
	gated.POST("/:id/followup", customers.SendFollowup)

	return &testEnv{router: r, store: store, mailer: mailer, tokens: tokens}
}

func (e *testEnv) seedBusiness(t *testing.T, plan models.Plan) *models.Business {
	t.Helper()
	b := &models.Business{Name: "Bella Salon", Slug: "bella-salon-" + uuid.NewString()[:4], Plan: plan, StripeCustomerID: "cus_" + uuid.NewString()[:6]}
	require.NoError(t, e.store.DB().Create(b).Error)
	return b
}

func (e *testEnv) ownerToken(t *testing.T, b *models.Business) string {
	t.Helper()
	token, err := e.tokens.GenerateToken(uuid.NewString(), b.ID.String())
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case []byte:
		buf.Write(v)
	default:
		_ = json.NewEncoder(&buf).Encode(v)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

var errProvider = errors.New("provider down")
