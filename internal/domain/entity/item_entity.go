package entity

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Amounts are stored as NUMERIC(16,2): at most two decimal places and
// fourteen integer digits.
const AmountScale = 2

var amountLimit = decimal.New(1, 14)

// Kind is the direction of an item's value.
type Kind string

const (
	KindCredit Kind = "CREDIT"
	KindDebit  Kind = "DEBIT"
)

// ParseKind accepts the canonical names case-insensitively.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindCredit, KindDebit:
		return k, true
	}
	return "", false
}

// Status is the lifecycle state of an item.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSettled   Status = "SETTLED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus accepts the canonical names case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusSettled, StatusCancelled:
		return st, true
	}
	return "", false
}

// Item is a single valued craft sale or expense (a "peça") owned by one user.
type Item struct {
	ID          string
	Description string
	Month       int
	Year        int
	Amount      decimal.Decimal
	Kind        Kind
	Status      Status
	UserID      string
	PhotoURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Rule identifies which item check failed.
type Rule string

const (
	RuleDescription Rule = "description"
	RuleMonth       Rule = "month"
	RuleYear        Rule = "year"
	RuleUser        Rule = "user"
	RuleAmount      Rule = "amount"
	RuleKind        Rule = "kind"
)

// RuleError is returned when an item fails validation.
type RuleError struct {
	Rule    Rule
	Message string
}

func (e *RuleError) Error() string { return e.Message }

var ruleMessages = map[Rule]string{
	RuleDescription: "invalid description.",
	RuleMonth:       "invalid month.",
	RuleYear:        "invalid year.",
	RuleUser:        "user required.",
	RuleAmount:      "invalid amount.",
	RuleKind:        "transaction kind required.",
}

func ruleError(r Rule) *RuleError {
	return &RuleError{Rule: r, Message: ruleMessages[r]}
}

// Validate checks the item field by field and reports the first violation.
// The order is fixed: description, month, year, user, amount, kind.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.Description) == "" {
		return ruleError(RuleDescription)
	}
	if i.Month < 1 || i.Month > 12 {
		return ruleError(RuleMonth)
	}
	if i.Year < 0 || len(strconv.Itoa(i.Year)) != 4 {
		return ruleError(RuleYear)
	}
	if i.UserID == "" {
		return ruleError(RuleUser)
	}
	if !i.Amount.IsPositive() || !i.Amount.Equal(i.Amount.Truncate(AmountScale)) || i.Amount.GreaterThanOrEqual(amountLimit) {
		return ruleError(RuleAmount)
	}
	if i.Kind == "" {
		return ruleError(RuleKind)
	}
	return nil
}
