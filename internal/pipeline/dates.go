package pipeline

import (
	"strings"
	"time"
)

const (
	resultDateLayout = "2006-01-02 15:04:05"
	shortDateLayout  = "01/02/06"
	infoDateLayout   = "01/02/2006"
	isoDateLayout    = "2006-01-02"
)

// timestampLayouts are tried in order for free-form timestamps.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDayFirst parses the DD/MM/YYYY text produced by the disposition query.
func parseDayFirst(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func reformat(s string, parse func(string) (time.Time, bool), layout string) (string, bool) {
	t, ok := parse(s)
	if !ok {
		return "", false
	}
	return t.Format(layout), true
}
