package profanity

import (
	"embed"
	"encoding/json"
	"log"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

var (
	defaultFilter *ProfanityFilter
	once          sync.Once
)

//go:embed words.json
var jsonData embed.FS

func LoadBannedWords() []string {
	data, err := jsonData.ReadFile("words.json")
	if err != nil {
		log.Fatalf("Failed to read embedded file: %s", err)
	}

	var bannedWords []string
	if err := json.Unmarshal(data, &bannedWords); err != nil {
		log.Fatalf("Failed to unmarshal JSON: %s", err)
	}
	return bannedWords
}

type ProfanityFilter struct {
	regex *regexp.Regexp
}

// NewProfanityFilter returns the shared filter built from the embedded word list.
func NewProfanityFilter() *ProfanityFilter {
	once.Do(func() {
		defaultFilter = &ProfanityFilter{
			regex: buildMasterRegex(LoadBannedWords()),
		}
	})

	return defaultFilter
}

func newFilter(words []string) *ProfanityFilter {
	return &ProfanityFilter{regex: buildMasterRegex(words)}
}

func (pf *ProfanityFilter) ContainsProfanity(text string) bool {
	if text == "" {
		return false
	}
	return pf.regex.MatchString(normalizeText(text))
}

// Mask replaces every offending word of text with asterisks, keeping the
// rest of the text and its spacing untouched.
func (pf *ProfanityFilter) Mask(text string) (string, bool) {
	if text == "" {
		return text, false
	}

	masked := false
	var b strings.Builder
	b.Grow(len(text))

	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) == 0 {
			return
		}
		w := string(word)
		core := strings.TrimLeft(w, trimmable)
		lead := w[:len(w)-len(core)]
		trimmed := strings.TrimRight(core, trimmable)
		trail := core[len(trimmed):]
		if trimmed != "" && pf.ContainsProfanity(trimmed) {
			b.WriteString(lead)
			b.WriteString(strings.Repeat("*", len([]rune(trimmed))))
			b.WriteString(trail)
			masked = true
		} else {
			b.WriteString(w)
		}
		word = word[:0]
	}

	for _, r := range text {
		if unicode.IsSpace(r) {
			flush()
			b.WriteRune(r)
			continue
		}
		word = append(word, r)
	}
	flush()

	return b.String(), masked
}

const trimmable = `.,!?;:"'()`

var separators = regexp.MustCompile(`[\s_.\-*/\\|]+`)

func normalizeText(text string) string {
	s := strings.ToLower(text)
	s = strings.Map(func(r rune) rune {
		switch r {
		case 'á', 'à', 'â', 'ä', 'ã', 'å':
			return 'a'
		case 'é', 'è', 'ê', 'ë':
			return 'e'
		case 'í', 'ì', 'î', 'ï':
			return 'i'
		case 'ó', 'ò', 'ô', 'ö', 'õ':
			return 'o'
		case 'ú', 'ù', 'û', 'ü':
			return 'u'
		case 'ñ':
			return 'n'
		case 'ç':
			return 'c'
		default:
			return r
		}
	}, s)

	s = strings.NewReplacer(
		"@", "a", "4", "a",
		"3", "e", "€", "e",
		"1", "i", "!", "i", "|", "i", "¡", "i",
		"0", "o", "()", "o", "[]", "o",
		"$", "s", "5", "s",
		"7", "t", "+", "t",
		"ph", "f",
	).Replace(s)

	return separators.ReplaceAllString(s, " ")
}

// buildMasterRegex joins one pattern per word. Letters may repeat and may
// be split by non-letters, so "f.u.u.c.k" still matches.
func buildMasterRegex(words []string) *regexp.Regexp {
	patterns := make([]string, 0, len(words))

	for _, base := range words {
		base = strings.ToLower(strings.TrimSpace(base))
		if base == "" {
			continue
		}
		parts := make([]string, 0, len(base))
		for _, r := range base {
			parts = append(parts, regexp.QuoteMeta(string(r))+"+")
		}
		patterns = append(patterns, strings.Join(parts, `[^\pL]*`))
	}
	if len(patterns) == 0 {
		return regexp.MustCompile(`$^`)
	}

	expression := `(?:^|[^\pL])(?:` + strings.Join(patterns, "|") + `)(?:s|es|ing|ed|er)?(?:$|[^\pL])`
	return regexp.MustCompile(expression)
}
