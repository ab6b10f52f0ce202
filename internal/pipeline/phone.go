package pipeline

import (
	"sort"
	"strings"

	"bcp-export/internal/domain"
)

const (
	PhoneSlots = 5

	// SentinelPhone marks a debtor without a usable phone number.
	SentinelPhone = "101011"

	minPhoneLength = 8
)

type Phones [PhoneSlots]string

// PhoneStats counts what the normalizer silently dropped.
type PhoneStats struct {
	DiscardedTokens int
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isPHFormat(s string) bool {
	return strings.HasPrefix(s, "63") || strings.HasPrefix(s, "09")
}

// PrioritizePhones splits, filters and dedupes the raw contact strings of
// one debtor and fills the five slots, PH-formatted numbers first. Within a
// class numbers are ordered lexicographically.
func PrioritizePhones(raw []domain.Field, stats *PhoneStats) Phones {
	unique := make(map[string]struct{})
	for _, f := range raw {
		if !f.Valid {
			continue
		}
		for _, tok := range strings.Fields(f.Value) {
			if !isDigits(tok) {
				if stats != nil {
					stats.DiscardedTokens++
				}
				continue
			}
			unique[tok] = struct{}{}
		}
	}

	numbers := make([]string, 0, len(unique))
	for n := range unique {
		numbers = append(numbers, n)
	}
	sort.Slice(numbers, func(i, j int) bool {
		pi, pj := isPHFormat(numbers[i]), isPHFormat(numbers[j])
		if pi != pj {
			return pi
		}
		return numbers[i] < numbers[j]
	})

	var out Phones
	for i := 0; i < PhoneSlots && i < len(numbers); i++ {
		out[i] = numbers[i]
	}
	return out
}

// applySentinel replaces a missing or too short first number.
func (p Phones) applySentinel() Phones {
	first := p[0]
	if first == "" || (isDigits(first) && len(first) < minPhoneLength) {
		p[0] = SentinelPhone
	}
	return p
}

// promote moves the first usable backup number into slot one when slot one
// holds the sentinel.
func (p Phones) promote() Phones {
	if p[0] != SentinelPhone {
		return p
	}
	for i := 1; i < PhoneSlots; i++ {
		if strings.TrimSpace(p[i]) != "" {
			p[0] = p[i]
			p[i] = ""
			break
		}
	}
	return p
}

func (p Phones) formatted() Phones {
	for i := range p {
		p[i] = FormatPhone(p[i])
	}
	return p
}

// FormatPhone rewrites international (63XXXXXXXXXX) and bare mobile
// (9XXXXXXXXX) numbers to the local 0-prefixed form.
func FormatPhone(s string) string {
	switch {
	case len(s) == 12 && strings.HasPrefix(s, "63") && isDigits(s):
		return "0" + s[2:]
	case len(s) == 10 && strings.HasPrefix(s, "9") && isDigits(s):
		return "0" + s
	default:
		return s
	}
}

// NormalizePhones runs the full contact pipeline for one debtor.
func NormalizePhones(raw []domain.Field, stats *PhoneStats) Phones {
	return PrioritizePhones(raw, stats).applySentinel().promote().formatted()
}
