package domain

import "time"

// ============================================================
// Ledger API models
// Amounts arrive as strings ("120,000") and are parsed with
// ParseAmount; dates as YYYY-MM-DD or RFC3339.
// ============================================================

// CreateEntryRequest is the payload for POST /v1/expenses.
type CreateEntryRequest struct {
	Name         string `json:"name"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency,omitempty"`
	Type         string `json:"type"`
	CategoryID   string `json:"categoryId,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
	Date         string `json:"date,omitempty"`
}

// UpdateEntryRequest is the partial payload for PATCH /v1/expenses/{id}.
// Nil fields keep the stored value.
type UpdateEntryRequest struct {
	Name         *string `json:"name,omitempty"`
	Amount       *string `json:"amount,omitempty"`
	Currency     *string `json:"currency,omitempty"`
	Type         *string `json:"type,omitempty"`
	CategoryID   *string `json:"categoryId,omitempty"`
	CategoryName *string `json:"categoryName,omitempty"`
	Date         *string `json:"date,omitempty"`
}

// EntryList is a page of entries.
type EntryList struct {
	Items []Entry `json:"items"`
	Count int     `json:"count"`
}

// MonthTotals carries one bucket's expense total.
type MonthTotals struct {
	Month        string `json:"month"`
	TotalExpense int64  `json:"totalExpense"`
}

// MonthlySummary compares the requested month with the one before it.
type MonthlySummary struct {
	Current  MonthTotals `json:"current"`
	Previous MonthTotals `json:"previous"`
}

// WeeklySummary is the Monday-Sunday expense total around a reference date.
type WeeklySummary struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	TotalExpense int64  `json:"totalExpense"`
}

// MonthlyBreakdown is a bucket's full aggregate view: both totals plus the
// per-category expense split.
type MonthlyBreakdown struct {
	Month        string           `json:"month"`
	TotalExpense int64            `json:"totalExpense"`
	TotalIncome  int64            `json:"totalIncome"`
	ByCategory   map[string]int64 `json:"byCategory"`
}

// YearTotals lists the twelve month totals of a calendar year.
type YearTotals struct {
	Year   int           `json:"year"`
	Months []MonthTotals `json:"months"`
}

// ============================================================
// Cards
// ============================================================

// Card is a stored payment card.
type Card struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CardNumber string    `json:"cardNumber"`
	Bank       string    `json:"bank"`
	CardType   string    `json:"cardType"`
	Expiry     string    `json:"expiry"`
	CVV        string    `json:"cvv"`
	Last4      string    `json:"last4"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CardRequest is the payload for creating or replacing a card.
type CardRequest struct {
	Name       string `json:"name"`
	CardNumber string `json:"cardNumber"`
	Bank       string `json:"bank"`
	CardType   string `json:"cardType"`
	Expiry     string `json:"expiry"`
	CVV        string `json:"cvv"`
}

// CardList is the listing response for a user's cards.
type CardList struct {
	Items []Card `json:"items"`
	Count int    `json:"count"`
}

// ============================================================
// Savings
// ============================================================

// Saving is one deposit into the user's savings log.
type Saving struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"date"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Day         int       `json:"day"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SavingRequest is the payload for POST /v1/savings.
type SavingRequest struct {
	Amount      int64  `json:"amount"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date,omitempty"`
}

// SavingList is the listing response for a user's savings.
type SavingList struct {
	Items []Saving `json:"items"`
	Count int      `json:"count"`
}

// ============================================================
// User profile
// ============================================================

// Profile is the user document attached to an identity.
type Profile struct {
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	IncomeAmount int64     `json:"incomeAmount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// RegisterRequest is the payload for POST /v1/users/register.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

// UpdateIncomeRequest is the payload for PATCH /v1/users/income.
type UpdateIncomeRequest struct {
	IncomeAmount *int64 `json:"incomeAmount"`
}

// ProfileUpdate carries the fields of a merge-write to the profile document.
// Nil fields are left untouched.
type ProfileUpdate struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	Email        *string
	IncomeAmount *int64
}

// ============================================================
// Operational models
// ============================================================

// LedgerMetrics is the snapshot served by GET /v1/metrics/ledger.
type LedgerMetrics struct {
	Creates      int64   `json:"creates"`
	Updates      int64   `json:"updates"`
	Deletes      int64   `json:"deletes"`
	DriftEvents  int64   `json:"driftEvents"`
	CacheHitRate float64 `json:"cacheHitRate"`
	Period       string  `json:"period"`
}

// SeedRequest asks the dev seeder for n random entries.
type SeedRequest struct {
	Count int `json:"count"`
}

// SeedResult reports what the dev seeder created.
type SeedResult struct {
	Created int      `json:"created"`
	IDs     []string `json:"ids"`
}
