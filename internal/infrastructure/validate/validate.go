package validate

import (
	"fmt"
	"strings"

	"github.com/hilthontt/civicreport/internal/domain"
)

// Rule checks a single string value. Rules return plain messages; Field
// attaches the label and the domain.ErrInvalidInput marker.
type Rule func(value string) error

// Field runs rules in order and reports the first failure as an invalid
// input for name.
func Field(name string, rules ...Rule) Rule {
	check := Compose(rules...)
	return func(value string) error {
		if err := check(value); err != nil {
			return fmt.Errorf("%w: %s %v", domain.ErrInvalidInput, name, err)
		}
		return nil
	}
}

// Compose chains rules. First failure wins.
func Compose(rules ...Rule) Rule {
	return func(value string) error {
		for _, rule := range rules {
			if err := rule(value); err != nil {
				return err
			}
		}
		return nil
	}
}

func Required() Rule {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("is required")
		}
		return nil
	}
}

// OneOf matches case-insensitively. Empty values pass; pair with Required.
func OneOf(allowed ...string) Rule {
	set := make(map[string]struct{}, len(allowed))
	for _, a := range allowed {
		set[strings.ToLower(a)] = struct{}{}
	}
	return func(v string) error {
		if v == "" {
			return nil
		}
		if _, ok := set[strings.ToLower(v)]; !ok {
			return fmt.Errorf("%q is not one of: %s", v, strings.Join(allowed, ", "))
		}
		return nil
	}
}

// MimePrefix accepts content types starting with one of the prefixes,
// e.g. "image/".
func MimePrefix(prefixes ...string) Rule {
	return func(v string) error {
		if v == "" {
			return nil
		}
		t := strings.ToLower(v)
		for _, p := range prefixes {
			if strings.HasPrefix(t, p) {
				return nil
			}
		}
		return fmt.Errorf("has content type %q, want %s*", v, strings.Join(prefixes, "* or "))
	}
}
