package services

import (
	"context"
	"testing"
	"time"

	"revisitly-backend/models"
	"revisitly-backend/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCheckin(t *testing.T, mailer Mailer) (*CheckinService, *repository.Store) {
	t.Helper()
	store := newTestStore(t)
	followups := NewFollowupService(store, mailer, nil, nil)
	return NewCheckinService(store, followups, nil), store
}

func TestCheckin_NewCustomerGetsThankYou(t *testing.T) {
	mailer := &fakeMailer{}
	svc, store := newCheckin(t, mailer)
	b := seedBusiness(t, store, models.Business{Name: "Bella Salon"})

	bc, err := svc.Checkin(context.Background(), CheckinInput{
		BusinessID: b.ID.String(),
		Name:       "Sarah",
		Email:      "sarah@example.com",
	})
	require.NoError(t, err)

	got, err := store.FindRelationship(context.Background(), bc.ID)
	require.NoError(t, err)
	assert.True(t, got.FollowupSent)
	assert.EqualValues(t, 1, countLogs(t, store, models.EmailCheckinThankYou))
	assert.Equal(t, 1, mailer.count())
}

func TestCheckin_RepeatVisitUpdatesRecords(t *testing.T) {
	mailer := &fakeMailer{}
	svc, store := newCheckin(t, mailer)
	b := seedBusiness(t, store, models.Business{})
	ctx := context.Background()

	day1 := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 9, 20, 10, 0, 0, 0, time.UTC)

	svc.now = fixedClock(day1)
	first, err := svc.Checkin(ctx, CheckinInput{BusinessID: b.ID.String(), Name: "Sarah", Email: "sarah@example.com", Phone: "+15550001"})
	require.NoError(t, err)

	svc.now = fixedClock(day2)
	second, err := svc.Checkin(ctx, CheckinInput{BusinessID: b.ID.String(), Name: "Sarah J", Email: "sarah@example.com", Phone: "+15550002", Service: "Colour"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var customers, relationships int64
	require.NoError(t, store.DB().Model(&models.Customer{}).Count(&customers).Error)
	require.NoError(t, store.DB().Model(&models.BusinessCustomer{}).Count(&relationships).Error)
	assert.EqualValues(t, 1, customers)
	assert.EqualValues(t, 1, relationships)

	got, err := store.FindRelationship(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC).Equal(got.LastVisit))
	assert.Equal(t, "Sarah J", got.Customer.Name)
	assert.Equal(t, "+15550002", got.Customer.Phone)
	assert.Equal(t, "Service: Colour", got.Notes)

	// The thank-you goes out once per relationship.
	assert.Equal(t, 1, mailer.count())
}

func TestCheckin_ValidationFailsBeforeWrites(t *testing.T) {
	svc, store := newCheckin(t, &fakeMailer{})
	b := seedBusiness(t, store, models.Business{})

	tests := []struct {
		name  string
		in    CheckinInput
		field string
	}{
		{"missing business", CheckinInput{Name: "Sarah", Email: "sarah@example.com"}, "businessId"},
		{"missing name", CheckinInput{BusinessID: b.ID.String(), Email: "sarah@example.com"}, "name"},
		{"missing email", CheckinInput{BusinessID: b.ID.String(), Name: "Sarah"}, "email"},
		{"blank email", CheckinInput{BusinessID: b.ID.String(), Name: "Sarah", Email: "   "}, "email"},
		{"malformed email", CheckinInput{BusinessID: b.ID.String(), Name: "Sarah", Email: "not-an-email"}, "email"},
		{"malformed business", CheckinInput{BusinessID: "b1", Name: "Sarah", Email: "sarah@example.com"}, "businessId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Checkin(context.Background(), tt.in)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.field, validation.Field)
		})
	}

	var customers int64
	require.NoError(t, store.DB().Model(&models.Customer{}).Count(&customers).Error)
	assert.EqualValues(t, 0, customers)
}

func TestCheckin_UnknownBusiness(t *testing.T) {
	svc, store := newCheckin(t, &fakeMailer{})

	_, err := svc.Checkin(context.Background(), CheckinInput{BusinessID: uuid.NewString(), Name: "Sarah", Email: "sarah@example.com"})
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)

	var customers int64
	require.NoError(t, store.DB().Model(&models.Customer{}).Count(&customers).Error)
	assert.EqualValues(t, 0, customers)
}

func TestCheckin_DispatchFailureFailsCheckin(t *testing.T) {
	svc, store := newCheckin(t, &fakeMailer{err: errBoom})
	b := seedBusiness(t, store, models.Business{})

	_, err := svc.Checkin(context.Background(), CheckinInput{BusinessID: b.ID.String(), Name: "Sarah", Email: "sarah@example.com"})
	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)

	var rel models.BusinessCustomer
	require.NoError(t, store.DB().First(&rel).Error)
	assert.False(t, rel.FollowupSent)
}

func TestRecordVisit_DoesNotDispatch(t *testing.T) {
	mailer := &fakeMailer{}
	svc, store := newCheckin(t, mailer)
	b := seedBusiness(t, store, models.Business{})

	bc, err := svc.RecordVisit(context.Background(), CheckinInput{BusinessID: b.ID.String(), Name: "Sarah", Email: "sarah@example.com", Referral: "Instagram"})
	require.NoError(t, err)
	assert.False(t, bc.FollowupSent)
	assert.Equal(t, "Referral: Instagram", bc.Notes)
	assert.Equal(t, 0, mailer.count())
}

func TestBuildNotes(t *testing.T) {
	assert.Equal(t, "", buildNotes("", ""))
	assert.Equal(t, "Service: Cut", buildNotes("Cut", ""))
	assert.Equal(t, "Referral: Friend", buildNotes("", "Friend"))
	assert.Equal(t, "Service: Cut | Referral: Friend", buildNotes("Cut", "Friend"))
}
