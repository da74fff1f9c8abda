package domain

type ApplicationStatus string

const (
	ApplicationNew         ApplicationStatus = "new"
	ApplicationPreselected ApplicationStatus = "preselected"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
)

type CastingApplication struct {
	ID          string            `json:"id" validate:"required"`
	FirstName   string            `json:"firstName"`
	LastName    string            `json:"lastName"`
	Email       string            `json:"email,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Gender      Gender            `json:"gender"`
	Height      int               `json:"height"`
	BirthDate   string            `json:"birthDate,omitempty"`
	Status      ApplicationStatus `json:"status"`
	SubmittedAt int64             `json:"submittedAt,omitempty"`
}

type FashionDayApplication struct {
	ID          string            `json:"id" validate:"required"`
	Name        string            `json:"name"`
	Email       string            `json:"email,omitempty"`
	Role        string            `json:"role"`
	EventID     string            `json:"eventId,omitempty"`
	Status      ApplicationStatus `json:"status"`
	SubmittedAt int64             `json:"submittedAt,omitempty"`
}

type FashionDayEvent struct {
	ID           string   `json:"id" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	Edition      int      `json:"edition"`
	Date         string   `json:"date"`
	Location     string   `json:"location"`
	Published    bool     `json:"published"`
	Participants []string `json:"participants"`
}

type BookingStatus string

const (
	BookingNew       BookingStatus = "new"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// BookingRequest is an open client request that models are matched against.
type BookingRequest struct {
	ID           string        `json:"id" validate:"required"`
	ClientName   string        `json:"clientName"`
	ClientEmail  string        `json:"clientEmail,omitempty"`
	Status       BookingStatus `json:"status"`
	Gender       Gender        `json:"gender,omitempty"`
	TargetHeight int           `json:"targetHeight,omitempty"`
	Categories   []string      `json:"categories"`
	EventDate    string        `json:"eventDate,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	SubmittedAt  int64         `json:"submittedAt,omitempty"`
}
