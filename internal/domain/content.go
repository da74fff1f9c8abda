package domain

type ContactMessage struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	Read        bool   `json:"read"`
	SubmittedAt int64  `json:"submittedAt,omitempty"`
}

type Notification struct {
	ID        string `json:"id" validate:"required"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Target    string `json:"target,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

type Article struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title" validate:"required"`
	Slug        string   `json:"slug"`
	Category    string   `json:"category"`
	Author      string   `json:"author"`
	Tags        []string `json:"tags"`
	Published   bool     `json:"published"`
	PublishedAt string   `json:"publishedAt,omitempty"`
	Views       int      `json:"views"`
}

type NewsItem struct {
	ID       string `json:"id" validate:"required"`
	Title    string `json:"title"`
	Date     string `json:"date"`
	Category string `json:"category"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type AgencyService struct {
	ID          string `json:"id" validate:"required"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Price       string `json:"price,omitempty"`
}

type Testimonial struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Quote string `json:"quote"`
}

type Partner struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name"`
	Category string `json:"category"`
	LogoURL  string `json:"logoUrl,omitempty"`
}

type PortfolioImage struct {
	ID       string `json:"id" validate:"required"`
	ModelID  string `json:"modelId"`
	URL      string `json:"url" validate:"required"`
	Category string `json:"category"`
	Featured bool   `json:"featured"`
}

type CourseModule struct {
	ID       string          `json:"id" validate:"required"`
	Title    string          `json:"title"`
	Chapters []CourseChapter `json:"chapters"`
}

type CourseChapter struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type FAQCategory struct {
	Category string    `json:"category"`
	Items    []FAQItem `json:"items"`
}

type FAQItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
