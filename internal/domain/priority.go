package domain

import (
	"strings"
	"unicode"
)

type Priority string

const (
	PriorityLow          Priority = "Low"
	PriorityMedium       Priority = "Medium"
	PriorityHigh         Priority = "High"
	PriorityNotSpecified Priority = "Not Specified"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityNotSpecified:
		return true
	}
	return false
}

// ParsePriority normalises a classifier answer such as "high.", "**Medium**"
// or "not specified" into a Priority.
func ParsePriority(raw string) (Priority, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, raw)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	switch cleaned {
	case "low":
		return PriorityLow, nil
	case "medium":
		return PriorityMedium, nil
	case "high":
		return PriorityHigh, nil
	case "not specified", "notspecified", "unspecified":
		return PriorityNotSpecified, nil
	}
	return "", ErrMalformedPriority
}
