package peloton

import (
	"strings"

	"github.com/pelosub/pelosub/pkg/strategy"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// activities are the recognized Peloton disciplines, in display order.
var activities = []string{
	"strength",
	"yoga",
	"meditation",
	"cardio",
	"stretching",
	"cycling",
	"running",
	"walking",
	"bootcamp",
	"bike bootcamp",
	"rowing",
	"row bootcamp",
}

// synonyms collapse raw labels seen in scraped data and on disk to their
// canonical bucket.
var synonyms = map[string]string{
	"tread bootcamp": "bootcamp",
	"bike_bootcamp":  "bike bootcamp",
	"row_bootcamp":   "row bootcamp",
}

// Normalizer maps raw activity labels to canonical activities.
type Normalizer struct {
	caser     cases.Caser
	canonical map[string]string
}

var _ strategy.Normalizer = (*Normalizer)(nil)

func NewNormalizer() *Normalizer {
	n := &Normalizer{
		caser:     cases.Title(language.AmericanEnglish),
		canonical: map[string]string{},
	}

	for _, a := range activities {
		n.canonical[a] = n.caser.String(a)
	}
	for raw, a := range synonyms {
		n.canonical[raw] = n.caser.String(a)
	}

	return n
}

func (n *Normalizer) Canonical(raw string) (string, bool) {
	label := strings.ToLower(strings.TrimSpace(raw))
	if c, ok := n.canonical[label]; ok {
		return c, true
	}

	// Historic "50/50" bootcamp labels leaked into directory names; map them
	// onto the bootcamp bucket they belong to.
	if strings.Contains(label, "50/50") || strings.Contains(label, "50-50") || strings.Contains(label, "bootcamp 50") {
		switch {
		case strings.Contains(label, "bike"):
			return n.canonical["bike bootcamp"], true
		case strings.Contains(label, "row"):
			return n.canonical["row bootcamp"], true
		case strings.Contains(label, "bootcamp"):
			return n.canonical["bootcamp"], true
		}
	}

	return "", false
}

func (n *Normalizer) Activities() []string {
	out := make([]string, len(activities))
	for i, a := range activities {
		out[i] = n.caser.String(a)
	}
	return out
}
