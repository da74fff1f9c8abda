package domain

type TransactionType string

const (
	TransactionRevenue TransactionType = "revenue"
	TransactionExpense TransactionType = "expense"
)

type AccountingTransaction struct {
	ID          string          `json:"id" validate:"required"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Type        TransactionType `json:"type" validate:"omitempty,oneof=revenue expense"`
	Amount      float64         `json:"amount" validate:"gte=0"`
	Currency    string          `json:"currency,omitempty"`
}

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentOverdue PaymentStatus = "overdue"
)

type MonthlyPayment struct {
	ID      string        `json:"id" validate:"required"`
	ModelID string        `json:"modelId"`
	Month   string        `json:"month"`
	Amount  float64       `json:"amount" validate:"gte=0"`
	Status  PaymentStatus `json:"status"`
}

type ContractStatus string

const (
	ContractDraft   ContractStatus = "draft"
	ContractActive  ContractStatus = "active"
	ContractExpired ContractStatus = "expired"
)

type Contract struct {
	ID        string         `json:"id" validate:"required"`
	ModelID   string         `json:"modelId"`
	Type      string         `json:"type"`
	Status    ContractStatus `json:"status"`
	StartDate string         `json:"startDate,omitempty"`
	EndDate   string         `json:"endDate,omitempty"`
	Value     float64        `json:"value"`
}
