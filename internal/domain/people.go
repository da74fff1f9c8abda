package domain

type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

type Model struct {
	ID           string   `json:"id" validate:"required"`
	Name         string   `json:"name" validate:"required"`
	Username     string   `json:"username"`
	Email        string   `json:"email,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Gender       Gender   `json:"gender"`
	Height       int      `json:"height"`
	Categories   []string `json:"categories"`
	Level        string   `json:"level,omitempty"`
	Location     string   `json:"location,omitempty"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	IsPublic     bool     `json:"isPublic"`
	IsActive     bool     `json:"isActive"`
	LastActivity int64    `json:"lastActivity,omitempty"`
	JoinedAt     string   `json:"joinedAt,omitempty"`
}

type Student struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Progress int    `json:"progress"`
	Active   bool   `json:"active"`
	JoinedAt string `json:"joinedAt,omitempty"`
}

type JuryMember struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type StaffMember struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Evaluation is one jury score, 0 to 10, for a model or applicant.
type Evaluation struct {
	ID           string  `json:"id" validate:"required"`
	CandidateID  string  `json:"candidateId" validate:"required"`
	JuryMemberID string  `json:"juryMemberId"`
	Score        float64 `json:"score" validate:"gte=0,lte=10"`
	Comment      string  `json:"comment,omitempty"`
	EvaluatedAt  int64   `json:"evaluatedAt,omitempty"`
}
