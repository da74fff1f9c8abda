package service

import (
	"fmt"

	"agency-sync-server/internal/domain"
)

type Health struct {
	FinancialHealth      bool `json:"financialHealth"`
	ApplicationBacklog   bool `json:"applicationBacklog"`
	CommunicationBacklog bool `json:"communicationBacklog"`
	ContentActive        bool `json:"contentActive"`
}

type Report struct {
	GeneratedAt int64          `json:"generatedAt"`
	Summary     []string       `json:"summary"`
	Health      Health         `json:"health"`
	Rollup      *domain.Rollup `json:"rollup"`
}

// GenerateReport turns a rollup into dashboard text and health flags. A nil
// rollup reports on the zero rollup.
func GenerateReport(rollup *domain.Rollup) Report {
	if rollup == nil {
		rollup = domain.ZeroRollup()
	}
	p, f, e := rollup.Population, rollup.Financial, rollup.Events
	a, c, ct := rollup.Applications, rollup.Communication, rollup.Content

	return Report{
		GeneratedAt: rollup.ComputedAt,
		Summary: []string{
			fmt.Sprintf("%d models (%d public, %d active), %d students", p.TotalModels, p.PublicModels, p.ActiveModels, p.BeginnerStudents),
			fmt.Sprintf("revenue %.0f, expenses %.0f, net %.0f over %d transactions", f.TotalRevenue, f.TotalExpenses, f.NetProfit, f.TransactionCount),
			fmt.Sprintf("%d events, %d upcoming", e.TotalEvents, e.UpcomingEvents),
			fmt.Sprintf("%d applications awaiting review", a.PendingReview),
			fmt.Sprintf("%d unread messages, %d pending bookings", c.MessagesUnread, c.BookingsPending),
			fmt.Sprintf("%d of %d articles published", ct.PublishedArticles, ct.Articles),
		},
		Health: Health{
			FinancialHealth:      f.NetProfit > 0,
			ApplicationBacklog:   a.PendingReview > 0,
			CommunicationBacklog: c.MessagesUnread > 0 || c.BookingsPending > 0,
			ContentActive:        ct.PublishedArticles > 0,
		},
		Rollup: rollup,
	}
}
