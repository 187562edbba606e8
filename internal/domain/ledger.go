// Package domain holds the ledger's core types and calendar math. It has no
// dependencies on storage or transport.
package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultCurrency is assumed when a request carries no currency code.
const DefaultCurrency = "VND"

// UncategorizedKey is the aggregate bucket for entries without a category.
const UncategorizedKey = "uncategorized"

// EntryKind distinguishes money leaving from money arriving.
type EntryKind string

const (
	KindExpense EntryKind = "expense"
	KindIncome  EntryKind = "income"
)

// Valid reports whether the kind is one of the two known values.
func (k EntryKind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// Entry is one dated monetary event. Amount is in the currency's smallest
// unit. Year/Month/Day are denormalized from Date for query filters.
type Entry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	Kind         EntryKind `json:"type"`
	CategoryID   string    `json:"categoryId,omitempty"`
	CategoryName string    `json:"categoryName,omitempty"`
	Date         time.Time `json:"date"`
	Year         int       `json:"year"`
	Month        int       `json:"month"`
	Day          int       `json:"day"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CategoryKey returns the aggregate map key for this entry's category.
func (e *Entry) CategoryKey() string {
	if e.CategoryID == "" {
		return UncategorizedKey
	}
	return e.CategoryID
}

// BucketKey returns the month bucket the entry contributes to.
func (e *Entry) BucketKey() MonthKey {
	return MonthKey{Year: e.Year, Month: e.Month}
}

// MonthKey identifies one calendar month bucket.
type MonthKey struct {
	Year  int
	Month int
}

// String renders the key as "YYYY-MM", the aggregate document id.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Previous returns the key of the month before, crossing year boundaries.
func (k MonthKey) Previous() MonthKey {
	if k.Month == 1 {
		return MonthKey{Year: k.Year - 1, Month: 12}
	}
	return MonthKey{Year: k.Year, Month: k.Month - 1}
}

// MonthKeyOf returns the bucket a point in time belongs to, evaluated in loc.
func MonthKeyOf(t time.Time, loc *time.Location) MonthKey {
	t = t.In(loc)
	return MonthKey{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonthKey parses "YYYY-MM".
func ParseMonthKey(s string) (MonthKey, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return MonthKey{}, &ErrValidation{Field: "month", Message: "expected YYYY-MM"}
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return MonthKey{}, &ErrValidation{Field: "month", Message: "expected YYYY-MM"}
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return MonthKey{}, &ErrValidation{Field: "month", Message: "month out of range"}
	}
	return MonthKey{Year: year, Month: month}, nil
}

// MonthlyAggregate is the per-month rollup document. ByCategory only tracks
// expenses; income is never categorized.
type MonthlyAggregate struct {
	Month        string           `json:"month"`
	TotalExpense int64            `json:"totalExpense"`
	TotalIncome  int64            `json:"totalIncome"`
	ByCategory   map[string]int64 `json:"byCategory"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// AggregateDelta is a signed adjustment to one aggregate document. All of its
// fields are applied atomically.
type AggregateDelta struct {
	TotalExpense int64
	TotalIncome  int64
	ByCategory   map[string]int64
}

// IsZero reports whether applying the delta would change nothing.
func (d AggregateDelta) IsZero() bool {
	if d.TotalExpense != 0 || d.TotalIncome != 0 {
		return false
	}
	for _, v := range d.ByCategory {
		if v != 0 {
			return false
		}
	}
	return true
}

// CalendarParts returns the year, month and day of t evaluated in loc.
func CalendarParts(t time.Time, loc *time.Location) (year, month, day int) {
	t = t.In(loc)
	return t.Year(), int(t.Month()), t.Day()
}

// WeekRange returns the Monday 00:00:00.000 and Sunday 23:59:59.999 bounds of
// the week containing t, evaluated in loc.
func WeekRange(t time.Time, loc *time.Location) (start, end time.Time) {
	t = t.In(loc)
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -daysSinceMonday)
	end = start.AddDate(0, 0, 6).Add(23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond)
	return start, end
}

// ParseAmount converts a user-supplied amount ("120,000", "99.6") into the
// currency's smallest unit, rounding half away from zero.
func ParseAmount(s string) (int64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return 0, &ErrValidation{Field: "amount", Message: "amount is required"}
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, &ErrValidation{Field: "amount", Message: "not a number: " + s}
	}
	return int64(math.Round(f)), nil
}

// ParseDate accepts RFC3339 timestamps or plain "YYYY-MM-DD" dates; plain
// dates are anchored at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, &ErrValidation{Field: "date", Message: "expected YYYY-MM-DD or RFC3339"}
	}
	return t, nil
}
