package service

import (
	"fmt"
	"math"
	"time"

	"agency-sync-server/internal/domain"
)

// dateLayout is the calendar-date format used by events in the document.
const dateLayout = "2006-01-02"

type section struct {
	name   string
	reduce func(doc *domain.Document, now time.Time, out *domain.Rollup) error
}

var sections = []section{
	{"population", reducePopulation},
	{"financial", reduceFinancial},
	{"events", reduceEvents},
	{"applications", reduceApplications},
	{"communication", reduceCommunication},
	{"content", reduceContent},
}

// ComputeRollup reduces every section of doc as of now. The first section
// that fails aborts the pass with a *domain.AggregationError.
func ComputeRollup(doc *domain.Document, now time.Time) (*domain.Rollup, error) {
	out := domain.ZeroRollup()
	for _, sec := range sections {
		if err := runSection(sec, doc, now, out); err != nil {
			return nil, err
		}
	}
	out.ComputedAt = now.UnixMilli()
	return out, nil
}

func runSection(sec section, doc *domain.Document, now time.Time, out *domain.Rollup) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.AggregationError{Section: sec.name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := sec.reduce(doc, now, out); err != nil {
		return &domain.AggregationError{Section: sec.name, Err: err}
	}
	return nil
}

func reducePopulation(doc *domain.Document, _ time.Time, out *domain.Rollup) error {
	p := &out.Population
	p.TotalModels = len(doc.Models)
	for _, m := range doc.Models {
		if m.IsPublic {
			p.PublicModels++
		}
		if m.IsActive {
			p.ActiveModels++
		}
		gender := string(m.Gender)
		if gender == "" {
			gender = "unspecified"
		}
		p.ModelsByGender[gender]++
	}

	p.BeginnerStudents = len(doc.BeginnerStudents)
	for _, st := range doc.BeginnerStudents {
		if st.Active {
			p.ActiveStudents++
		}
	}
	p.JuryMembers = len(doc.JuryMembers)
	p.RegistrationStaff = len(doc.RegistrationStaff)
	return nil
}

func reduceFinancial(doc *domain.Document, _ time.Time, out *domain.Rollup) error {
	f := &out.Financial
	for _, tx := range doc.AccountingTransactions {
		if math.IsNaN(tx.Amount) || math.IsInf(tx.Amount, 0) {
			return fmt.Errorf("transaction %s: amount is not a finite number", tx.ID)
		}
		switch tx.Type {
		case domain.TransactionRevenue:
			f.TotalRevenue += tx.Amount
		case domain.TransactionExpense:
			f.TotalExpenses += tx.Amount
		}
		f.TransactionCount++
	}
	if math.IsInf(f.TotalRevenue, 0) || math.IsInf(f.TotalExpenses, 0) {
		return fmt.Errorf("transaction totals overflow")
	}
	f.NetProfit = f.TotalRevenue - f.TotalExpenses

	for _, p := range doc.MonthlyPayments {
		switch p.Status {
		case domain.PaymentPaid:
			f.PaymentsCollected += p.Amount
		case domain.PaymentPending:
			f.PaymentsPending++
		case domain.PaymentOverdue:
			f.PaymentsOverdue++
		}
	}

	for _, c := range doc.Contracts {
		if c.Status == domain.ContractActive {
			f.ActiveContracts++
			f.ContractValue += c.Value
		}
	}
	return nil
}

// reduceEvents compares calendar dates as strings; an event dated today
// counts as upcoming.
func reduceEvents(doc *domain.Document, now time.Time, out *domain.Rollup) error {
	e := &out.Events
	today := now.Format(dateLayout)
	e.TotalEvents = len(doc.FashionDayEvents)
	for _, ev := range doc.FashionDayEvents {
		if ev.Date >= today {
			e.UpcomingEvents++
		} else {
			e.PastEvents++
		}
		if ev.Published {
			e.PublishedEvents++
		}
	}
	return nil
}

func applicationStatus(status domain.ApplicationStatus) string {
	if status == "" {
		return string(domain.ApplicationNew)
	}
	return string(status)
}

func reduceApplications(doc *domain.Document, _ time.Time, out *domain.Rollup) error {
	a := &out.Applications
	a.CastingTotal = len(doc.CastingApplications)
	for _, app := range doc.CastingApplications {
		status := applicationStatus(app.Status)
		a.CastingByStatus[status]++
		if status == string(domain.ApplicationNew) {
			a.PendingReview++
		}
	}

	a.FashionDayTotal = len(doc.FashionDayApplications)
	for _, app := range doc.FashionDayApplications {
		status := applicationStatus(app.Status)
		a.FashionDayByStatus[status]++
		if status == string(domain.ApplicationNew) {
			a.PendingReview++
		}
	}
	return nil
}

func reduceCommunication(doc *domain.Document, _ time.Time, out *domain.Rollup) error {
	c := &out.Communication
	c.MessagesTotal = len(doc.ContactMessages)
	for _, m := range doc.ContactMessages {
		if !m.Read {
			c.MessagesUnread++
		}
	}

	c.BookingsTotal = len(doc.BookingRequests)
	for _, b := range doc.BookingRequests {
		if b.Status == "" || b.Status == domain.BookingNew {
			c.BookingsPending++
		}
	}

	c.NotificationsTotal = len(doc.Notifications)
	for _, n := range doc.Notifications {
		if !n.Read {
			c.NotificationsUnread++
		}
	}
	return nil
}

func reduceContent(doc *domain.Document, _ time.Time, out *domain.Rollup) error {
	c := &out.Content
	c.Articles = len(doc.Articles)
	for _, a := range doc.Articles {
		if a.Published {
			c.PublishedArticles++
		}
		c.ArticleViews += a.Views
	}
	c.NewsItems = len(doc.NewsItems)
	c.Testimonials = len(doc.Testimonials)
	c.Services = len(doc.AgencyServices)
	c.Partners = len(doc.AgencyPartners)

	c.PortfolioImages = len(doc.PortfolioImages)
	for _, img := range doc.PortfolioImages {
		if img.Featured {
			c.FeaturedImages++
		}
	}

	c.CourseModules = len(doc.CourseData)
	for _, m := range doc.CourseData {
		c.CourseChapters += len(m.Chapters)
	}
	return nil
}
