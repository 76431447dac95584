// Package mask replaces confidential names and contact details with
// neutral placeholders before text leaves the system.
package mask

import (
	"regexp"
	"strings"
)

// Rule is one ordered substitution.
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Term is a named entity and its placeholder.
type Term struct {
	Term        string `yaml:"term" json:"term"`
	Replacement string `yaml:"replacement" json:"replacement"`
}

// DefaultTerms are masked in every document. Order matters: multi-word
// names come before their prefixes.
var DefaultTerms = []Term{
	{"RBL BANK", "ABC BANK"},
	{"RBL", "ABC"},
	{"SARTHAK", "LOS_PLATFORM_X"},
	{"FINACLE", "CORE_SYSTEM_X"},
	{"AHL", "PRODUCT_X"},
	{"MSME", "PRODUCT_Y"},
	{"PHL", "PRODUCT_Z"},
	{"CIBIL", "BUREAU_X"},
	{"POSIDEX", "VENDOR_X"},
	{"RAMP", "ENGINE_X"},
	{"NCR", "REGION_1"},
	{"MPCG", "REGION_2"},
}

// Contact patterns run after the named terms.
var (
	emailPattern  = regexp.MustCompile(`\b[\w.%+-]+@[\w.-]+\.[A-Za-z]{2,}\b`)
	phonePattern  = regexp.MustCompile(`\b\+?\d[\d\s-]{8,}\b`)
	digitsPattern = regexp.MustCompile(`\b\d{8,}\b`)
)

const (
	EmailPlaceholder  = "user@mock.example"
	PhonePlaceholder  = "XXXXXXXXXX"
	DigitsPlaceholder = "XXXXXXXX"
)

type Masker struct {
	rules []Rule
}

// New builds a masker from the default terms followed by extra terms and
// the contact patterns. Extra terms with an empty name are ignored.
func New(extra []Term) *Masker {
	m := &Masker{}
	for _, t := range DefaultTerms {
		m.rules = append(m.rules, Rule{Pattern: termPattern(t.Term), Replacement: t.Replacement})
	}
	for _, t := range extra {
		if strings.TrimSpace(t.Term) == "" {
			continue
		}
		m.rules = append(m.rules, Rule{Pattern: termPattern(t.Term), Replacement: t.Replacement})
	}
	m.rules = append(m.rules,
		Rule{Pattern: emailPattern, Replacement: EmailPlaceholder},
		Rule{Pattern: phonePattern, Replacement: PhonePlaceholder},
		Rule{Pattern: digitsPattern, Replacement: DigitsPlaceholder},
	)
	return m
}

// Default masks only the built-in terms and contact patterns.
func Default() *Masker {
	return New(nil)
}

// termPattern matches term case-insensitively as a whole word. Inner
// whitespace matches any run of whitespace, including none.
func termPattern(term string) *regexp.Regexp {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	expr := strings.Join(words, `\s*`)
	if isWordByte(term[firstNonSpace(term)]) {
		expr = `\b` + expr
	}
	if isWordByte(term[lastNonSpace(term)]) {
		expr += `\b`
	}
	return regexp.MustCompile(`(?i)` + expr)
}

func firstNonSpace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t\n\r"))
}

func lastNonSpace(s string) int {
	return len(strings.TrimRight(s, " \t\n\r")) - 1
}

func isWordByte(b byte) bool {
	return b == '_' || ('0' <= b && b <= '9') || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

// Mask applies every rule in order.
func (m *Masker) Mask(s string) string {
	for _, r := range m.rules {
		s = r.Pattern.ReplaceAllLiteralString(s, r.Replacement)
	}
	return s
}

// Rules returns a copy of the ordered rule list.
func (m *Masker) Rules() []Rule {
	return append([]Rule(nil), m.rules...)
}
