package services

import (
	"context"
	"fmt"
	"time"

	"revisitly-backend/models"
	"revisitly-backend/utils"

	"github.com/google/uuid"
)

type DashboardOverview struct {
	Plan              models.Plan        `json:"plan"`
	MonthlyLimit      int                `json:"monthlyLimit"`
	TotalCustomers    int                `json:"totalCustomers"`
	VisitsThisMonth   int                `json:"visitsThisMonth"`
	FollowupsSent     int                `json:"followupsSent"`
	RebooksSent       int                `json:"rebooksSent"`
	RecentCustomers   []RecentCustomer   `json:"recentCustomers"`
	UpcomingReminders []UpcomingReminder `json:"upcomingReminders"`
}

type RecentCustomer struct {
	Name      string `json:"name"`
	Service   string `json:"service"`
	VisitDate string `json:"visitDate"` // e.g. "Today", "Yesterday"
}

type UpcomingReminder struct {
	Name string `json:"name"`
	Type string `json:"type"` // "30-day" or "60-day"
	Date string `json:"date"` // e.g. "Tomorrow", "3 days"
}

const (
	recentLimit   = 3
	upcomingDays  = 7
	upcomingLimit = 7
)

// Overview summarises a business's customers for the dashboard.
func (s *BusinessService) Overview(ctx context.Context, businessID uuid.UUID) (*DashboardOverview, error) {
	business, err := s.Get(ctx, businessID)
	if err != nil {
		return nil, err
	}
	relationships, err := s.ListCustomers(ctx, businessID)
	if err != nil {
		return nil, err
	}
	return summarize(business, relationships, utils.Today(s.now())), nil
}

// summarize expects relationships ordered by most recent visit first.
func summarize(b *models.Business, relationships []models.BusinessCustomer, today time.Time) *DashboardOverview {
	out := &DashboardOverview{
		Plan:              b.Plan,
		MonthlyLimit:      b.Plan.MonthlyCustomerLimit(),
		TotalCustomers:    len(relationships),
		RecentCustomers:   []RecentCustomer{},
		UpcomingReminders: []UpcomingReminder{},
	}
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	for _, bc := range relationships {
		visit := utils.Today(bc.LastVisit)
		if !visit.Before(firstOfMonth) {
			out.VisitsThisMonth++
		}
		if bc.FollowupSent {
			out.FollowupsSent++
		}
		if bc.RebookSent {
			out.RebooksSent++
		}

		if len(out.RecentCustomers) < recentLimit {
			out.RecentCustomers = append(out.RecentCustomers, RecentCustomer{
				Name:      bc.Customer.Name,
				Service:   bc.Service,
				VisitDate: agoLabel(utils.DaysBetween(visit, today)),
			})
		}

		if !bc.FollowupSent || len(out.UpcomingReminders) >= upcomingLimit {
			continue
		}
		days := 30
		if bc.RebookSent {
			days = 60
		}
		until := utils.DaysBetween(today, visit.AddDate(0, 0, days))
		if until < 0 || until >= upcomingDays {
			continue
		}
		out.UpcomingReminders = append(out.UpcomingReminders, UpcomingReminder{
			Name: bc.Customer.Name,
			Type: fmt.Sprintf("%d-day", days),
			Date: untilLabel(until),
		})
	}
	return out
}

func agoLabel(days int) string {
	switch days {
	case 0:
		return "Today"
	case 1:
		return "Yesterday"
	default:
		return fmt.Sprintf("%d days ago", days)
	}
}

func untilLabel(days int) string {
	switch days {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	default:
		return fmt.Sprintf("%d days", days)
	}
}
