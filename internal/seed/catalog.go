// Package seed holds the bundled defaults written to an empty remote tree.
package seed

import "agency-sync-server/internal/domain"

// Version identifies the bundled catalog revision.
const Version = "2024.10"

// Document builds the catalog from scratch on every call, so callers can
// never mutate the defaults another caller sees.
func Document() *domain.Document {
	return &domain.Document{
		SiteConfig: domain.SiteConfig{
			AgencyName: "Perfect Models Management",
			Tagline:    "L'élégance au service de la mode",
			LogoURL:    "https://i.ibb.co/3yBwFYq/logo.png",
			Currency:   "FCFA",
		},
		ContactInfo: domain.ContactInfo{
			Email:   "contact@perfectmodels.ga",
			Phone:   "+241 077 50 79 50",
			Address: "Libreville, Gabon",
		},
		SocialLinks: domain.SocialLinks{
			Facebook:  "https://www.facebook.com/PerfectModels.ga",
			Instagram: "https://www.instagram.com/perfectmodels.ga",
			Youtube:   "https://www.youtube.com/@PMM241",
		},
		SiteImages: map[string]string{
			"hero":  "https://i.ibb.co/K2wS0Pz/hero-bg.jpg",
			"about": "https://i.ibb.co/3fD5wzZ/about-img.jpg",
		},

		Models: []domain.Model{
			{
				ID:         "noemi-kim",
				Name:       "Noemi Kim",
				Username:   "Noemi01",
				Gender:     domain.GenderFemale,
				Height:     178,
				Categories: []string{"runway", "editorial"},
				Level:      "pro",
				Location:   "Libreville",
				IsPublic:   true,
				IsActive:   true,
				JoinedAt:   "2021-03-14",
			},
			{
				ID:         "aj-caramela",
				Name:       "AJ Caramela",
				Username:   "AJ02",
				Gender:     domain.GenderFemale,
				Height:     175,
				Categories: []string{"commercial", "beauty"},
				Level:      "pro",
				Location:   "Libreville",
				IsPublic:   true,
				IsActive:   true,
				JoinedAt:   "2022-01-09",
			},
			{
				ID:         "yann-mbeng",
				Name:       "Yann Mbeng",
				Username:   "Yann03",
				Gender:     domain.GenderMale,
				Height:     186,
				Categories: []string{"runway", "commercial"},
				Level:      "beginner",
				Location:   "Port-Gentil",
				IsPublic:   false,
				IsActive:   true,
				JoinedAt:   "2023-06-21",
			},
		},
		BeginnerStudents: []domain.Student{},
		JuryMembers: []domain.JuryMember{
			{ID: "jury-1", Name: "Jury Principal", Username: "jury1"},
		},
		RegistrationStaff: []domain.StaffMember{
			{ID: "staff-1", Name: "Accueil", Username: "staff1"},
		},
		JuryEvaluations:        []domain.Evaluation{},
		CastingApplications:    []domain.CastingApplication{},
		FashionDayApplications: []domain.FashionDayApplication{},
		FashionDayEvents: []domain.FashionDayEvent{
			{
				ID:           "pfd-2025",
				Name:         "Perfect Fashion Day",
				Edition:      2,
				Date:         "2025-03-29",
				Location:     "Libreville",
				Published:    true,
				Participants: []string{},
			},
		},
		BookingRequests: []domain.BookingRequest{},
		ContactMessages: []domain.ContactMessage{},
		Notifications:   []domain.Notification{},
		AccountingTransactions: []domain.AccountingTransaction{
			{
				ID:          "tx-opening",
				Date:        "2024-01-01",
				Description: "Capital initial",
				Category:    "capital",
				Type:        domain.TransactionRevenue,
				Amount:      500000,
				Currency:    "FCFA",
			},
		},
		MonthlyPayments: []domain.MonthlyPayment{},
		Contracts:       []domain.Contract{},
		Articles: []domain.Article{
			{
				ID:        "welcome",
				Title:     "Bienvenue chez Perfect Models Management",
				Slug:      "bienvenue",
				Category:  "agence",
				Author:    "PMM",
				Tags:      []string{"agence"},
				Published: true,
			},
		},
		NewsItems: []domain.NewsItem{},
		AgencyServices: []domain.AgencyService{
			{ID: "svc-booking", Title: "Booking de mannequins", Category: "booking"},
			{ID: "svc-training", Title: "Formation mannequin", Category: "formation"},
		},
		Testimonials:    []domain.Testimonial{},
		AgencyPartners:  []domain.Partner{},
		PortfolioImages: []domain.PortfolioImage{},
		CourseData: []domain.CourseModule{
			{
				ID:    "module-1",
				Title: "Les bases du métier",
				Chapters: []domain.CourseChapter{
					{ID: "1-1", Title: "La démarche", Content: "Posture, rythme et regard."},
					{ID: "1-2", Title: "La pose", Content: "Angles, lignes et expressions."},
				},
			},
		},
		FAQData: []domain.FAQCategory{
			{
				Category: "Général",
				Items: []domain.FAQItem{
					{Question: "Comment postuler ?", Answer: "Via le formulaire de casting en ligne."},
				},
			},
		},
	}
}
