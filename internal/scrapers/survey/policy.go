package survey

import (
	"maps"
	"slices"
	"strings"
)

const (
	// EmailPlaceholder is the only answer value that is not sent literally,
	// it is replaced by the email address of whoever is running the survey.
	EmailPlaceholder = "%%email%%"
	// RatingPrefix marks rating questions, these get the default rating when
	// the policy has no answer for them.
	RatingPrefix  = "R"
	DefaultRating = "5"
)

// Policy maps survey field names to scripted answers. It is immutable once
// constructed.
type Policy struct {
	answers       map[string]string
	defaultRating string
}

// NewPolicy copies answers, an empty defaultRating falls back to DefaultRating.
func NewPolicy(answers map[string]string, defaultRating string) Policy {
	if defaultRating == "" {
		defaultRating = DefaultRating
	}
	return Policy{
		answers:       maps.Clone(answers),
		defaultRating: defaultRating,
	}
}

// Resolve never fails, unknown fields that are not ratings are left blank.
func (p Policy) Resolve(field, email string) string {
	answer, ok := p.answers[field]
	if ok {
		if answer == EmailPlaceholder {
			return email
		}
		return answer
	}
	if strings.HasPrefix(field, RatingPrefix) {
		return p.defaultRating
	}
	return ""
}

func (p Policy) Len() int {
	return len(p.answers)
}

func (p Policy) Fields() []string {
	return slices.Sorted(maps.Keys(p.answers))
}

func (p Policy) DefaultRating() string {
	return p.defaultRating
}
