package domain

// SyncMetadata is stored inside the Document and is the only source for
// deciding whether the rollup is fresh.
type SyncMetadata struct {
	LastSync int64   `json:"lastSync"`
	Data     *Rollup `json:"data,omitempty"`
	Version  int     `json:"version"`
}

// Rollup is fully derivable from the raw collections at one point in time.
type Rollup struct {
	Population    PopulationStats    `json:"population"`
	Financial     FinancialStats     `json:"financial"`
	Events        EventStats         `json:"events"`
	Applications  ApplicationStats   `json:"applications"`
	Communication CommunicationStats `json:"communication"`
	Content       ContentStats       `json:"content"`
	ComputedAt    int64              `json:"computedAt"`
}

type PopulationStats struct {
	TotalModels       int            `json:"totalModels"`
	PublicModels      int            `json:"publicModels"`
	ActiveModels      int            `json:"activeModels"`
	ModelsByGender    map[string]int `json:"modelsByGender"`
	BeginnerStudents  int            `json:"beginnerStudents"`
	ActiveStudents    int            `json:"activeStudents"`
	JuryMembers       int            `json:"juryMembers"`
	RegistrationStaff int            `json:"registrationStaff"`
}

type FinancialStats struct {
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalExpenses     float64 `json:"totalExpenses"`
	NetProfit         float64 `json:"netProfit"`
	TransactionCount  int     `json:"transactionCount"`
	PaymentsCollected float64 `json:"paymentsCollected"`
	PaymentsPending   int     `json:"paymentsPending"`
	PaymentsOverdue   int     `json:"paymentsOverdue"`
	ActiveContracts   int     `json:"activeContracts"`
	ContractValue     float64 `json:"contractValue"`
}

type EventStats struct {
	TotalEvents     int `json:"totalEvents"`
	UpcomingEvents  int `json:"upcomingEvents"`
	PastEvents      int `json:"pastEvents"`
	PublishedEvents int `json:"publishedEvents"`
}

type ApplicationStats struct {
	CastingTotal       int            `json:"castingTotal"`
	CastingByStatus    map[string]int `json:"castingByStatus"`
	FashionDayTotal    int            `json:"fashionDayTotal"`
	FashionDayByStatus map[string]int `json:"fashionDayByStatus"`
	PendingReview      int            `json:"pendingReview"`
}

type CommunicationStats struct {
	MessagesTotal       int `json:"messagesTotal"`
	MessagesUnread      int `json:"messagesUnread"`
	BookingsTotal       int `json:"bookingsTotal"`
	BookingsPending     int `json:"bookingsPending"`
	NotificationsTotal  int `json:"notificationsTotal"`
	NotificationsUnread int `json:"notificationsUnread"`
}

type ContentStats struct {
	Articles          int `json:"articles"`
	PublishedArticles int `json:"publishedArticles"`
	ArticleViews      int `json:"articleViews"`
	NewsItems         int `json:"newsItems"`
	Testimonials      int `json:"testimonials"`
	Services          int `json:"services"`
	Partners          int `json:"partners"`
	PortfolioImages   int `json:"portfolioImages"`
	FeaturedImages    int `json:"featuredImages"`
	CourseModules     int `json:"courseModules"`
	CourseChapters    int `json:"courseChapters"`
}

// ZeroRollup is returned when no rollup was ever computed successfully.
func ZeroRollup() *Rollup {
	return &Rollup{
		Population:   PopulationStats{ModelsByGender: map[string]int{}},
		Applications: ApplicationStats{CastingByStatus: map[string]int{}, FashionDayByStatus: map[string]int{}},
	}
}
