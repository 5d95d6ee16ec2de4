package model

import (
	"fmt"
	"time"
)

// MatchKind selects how a rule pattern is compared with a description.
type MatchKind string

// Match kinds.
const (
	MatchContains   MatchKind = "contains"
	MatchStartsWith MatchKind = "starts_with"
	MatchRegex      MatchKind = "regex"
)

// ParseMatchKind validates s as a match kind. The empty string means contains.
func ParseMatchKind(s string) (MatchKind, error) {
	switch MatchKind(s) {
	case "":
		return MatchContains, nil
	case MatchContains, MatchStartsWith, MatchRegex:
		return MatchKind(s), nil
	}
	return "", fmt.Errorf("invalid match kind %q", s)
}

// Rule is a classification instruction.
//
// Rules are totally ordered by Priority descending, then ID ascending: the
// ID is assigned at creation so the earlier-created rule wins a tie.
type Rule struct {
	CreatedAt  time.Time `json:"created_at"`
	Pattern    string    `json:"pattern"`
	Kind       MatchKind `json:"match_type"`
	Vendor     string    `json:"vendor,omitempty"`
	Category   string    `json:"category,omitempty"` // populated by joins
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Priority   int       `json:"priority"`
	HitCount   int       `json:"hit_count"`
	IsActive   bool      `json:"is_active"`
}

// Precedes reports whether r is evaluated before o.
func (r Rule) Precedes(o Rule) bool {
	if r.Priority != o.Priority {
		return r.Priority > o.Priority
	}
	return r.ID < o.ID
}

// RuleSpec describes a rule to create from a review decision.
type RuleSpec struct {
	Pattern  string
	Kind     MatchKind
	Priority *int
}
