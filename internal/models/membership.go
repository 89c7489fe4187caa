package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Level is a membership tier, ordered CLASSIC < PLUS < PREMIER.
type Level string

const (
	LevelClassic Level = "CLASSIC"
	LevelPlus    Level = "PLUS"
	LevelPremier Level = "PREMIER"
)

// Rank returns the ordinal benefit rank for a level. Unknown levels rank 0,
// below every real tier.
func (l Level) Rank() int {
	switch l {
	case LevelClassic:
		return 1
	case LevelPlus:
		return 2
	case LevelPremier:
		return 3
	default:
		return 0
	}
}

// BenefitSet returns the integer benefit-set code the billing platform keys
// off membership tier.
func (l Level) BenefitSet() int {
	return l.Rank()
}

// Valid reports whether the level is one of the known tiers.
func (l Level) Valid() bool {
	return l.Rank() > 0
}

// BillingCycle is the subscription billing period.
type BillingCycle string

const (
	CycleMonthly BillingCycle = "MONTHLY"
	CycleYearly  BillingCycle = "YEARLY"
)

// ChangeMode classifies a tier change relative to the current subscription.
type ChangeMode string

const (
	ModeUpgrade   ChangeMode = "upgrade"
	ModeDowngrade ChangeMode = "downgrade"
	ModeChange    ChangeMode = "change"
)

// ParseLevel infers a membership level from a human-readable product name
// such as "Plus Annual". This is a migration shim for catalog rows that
// predate the first-class level column; new rows carry Level directly.
func ParseLevel(productName string) Level {
	name := strings.ToUpper(productName)
	switch {
	case strings.Contains(name, "PREMIER"):
		return LevelPremier
	case strings.Contains(name, "PLUS"):
		return LevelPlus
	case strings.Contains(name, "CLASSIC"):
		return LevelClassic
	default:
		return ""
	}
}

// ParseCycle infers the billing cycle from a product name. Same migration
// shim caveat as ParseLevel.
func ParseCycle(productName string) BillingCycle {
	if strings.Contains(strings.ToUpper(productName), "ANNUAL") {
		return CycleYearly
	}
	return CycleMonthly
}

// ParsePrice converts a platform rate string like "$12.34" into a dollar
// amount. Returns an error for anything that does not parse as a number
// after stripping the currency symbol and separators.
func ParsePrice(rate string) (float64, error) {
	cleaned := strings.TrimSpace(rate)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("parse price: empty rate string")
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", rate, err)
	}
	return price, nil
}

// FormatDate renders a time in the YYYY-MM-DD layout the billing platform
// expects for StartDate/EndDate fields.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
