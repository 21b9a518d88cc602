package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"revisitly-backend/config"
	"revisitly-backend/models"
	"revisitly-backend/repository"
	"revisitly-backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var errBoom = errors.New("boom")

func newTestStore(t *testing.T) *repository.Store {
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
	return repository.New(db)
}

func seedBusiness(t *testing.T, s *repository.Store, b models.Business) *models.Business {
	t.Helper()
	if b.Name == "" {
		b.Name = "Bella Salon"
	}
	if b.Slug == "" {
		b.Slug = utils.Slugify(b.Name) + "-" + uuid.NewString()[:4]
	}
	require.NoError(t, s.DB().Create(&b).Error)
	return &b
}

// seedVisit creates a relationship with the given flags and visit date.
func seedVisit(t *testing.T, s *repository.Store, b *models.Business, email string, day time.Time, followupSent, rebookSent bool) *models.BusinessCustomer {
	t.Helper()
	ctx := context.Background()
	c, err := s.UpsertCustomer(ctx, "Customer "+email, email, "")
	require.NoError(t, err)
	bc, err := s.UpsertRelationship(ctx, repository.Visit{CustomerID: c.ID, BusinessID: b.ID, Day: day})
	require.NoError(t, err)
	if followupSent {
		_, err = s.ClaimFollowup(ctx, bc.ID, day)
		require.NoError(t, err)
	}
	if rebookSent {
		_, err = s.ClaimRebook(ctx, bc.ID, day)
		require.NoError(t, err)
	}
	return bc
}

func countLogs(t *testing.T, s *repository.Store, typ models.EmailType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB().Model(&models.EmailLog{}).Where("type = ?", typ).Count(&n).Error)
	return n
}

type fakeMailer struct {
	mu     sync.Mutex
	sent   []Message
	failTo map[string]error
	err    error
}

func (m *fakeMailer) Send(_ context.Context, msg Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	if err, ok := m.failTo[msg.To]; ok {
		return "", err
	}
	m.sent = append(m.sent, msg)
	return "msg-" + uuid.NewString(), nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeSMS struct {
	sent []string
	err  error
}

func (f *fakeSMS) SendSMS(_ context.Context, to, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, to)
	return "SM" + uuid.NewString(), nil
}

// failingLogStore fails every email log write.
type failingLogStore struct {
	*repository.Store
}

func (failingLogStore) CreateEmailLog(context.Context, *models.EmailLog) error {
	return errBoom
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
