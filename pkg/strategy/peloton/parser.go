package peloton

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pelosub/pelosub/pkg/strategy"
)

const dateLayout = "2006-01-02"

var (
	// Strict convention: S{season}E{episode} - {date} - {title}. Legacy
	// entries carry unpadded seasons, so 1-3 digits are accepted on read.
	strictNamePattern = regexp.MustCompile(`^S(\d{1,3})E(\d{1,3}) - (\d{4}-\d{2}-\d{2}) - (.+)$`)

	looseMarkerPattern = regexp.MustCompile(`[sS](\d{1,3})[eE](\d{1,3})`)
	looseDatePattern   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// Parser implements the Peloton episode directory naming convention.
type Parser struct{}

var _ strategy.NameParser = (*Parser)(nil)

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(name string) (strategy.ParsedName, bool) {
	m := strictNamePattern.FindStringSubmatch(name)
	if m == nil {
		return strategy.ParsedName{}, false
	}

	season, err := strconv.Atoi(m[1])
	if err != nil || season <= 0 {
		return strategy.ParsedName{}, false
	}
	episode, err := strconv.Atoi(m[2])
	if err != nil || episode <= 0 {
		return strategy.ParsedName{}, false
	}
	date, err := time.Parse(dateLayout, m[3])
	if err != nil {
		return strategy.ParsedName{}, false
	}

	return strategy.ParsedName{
		Season:  season,
		Episode: episode,
		Date:    date,
		Title:   m[4],
	}, true
}

func (p *Parser) ParseLoose(name string) (strategy.ParsedName, bool) {
	marker := looseMarkerPattern.FindStringSubmatch(name)
	if marker == nil {
		return strategy.ParsedName{}, false
	}

	season, err := strconv.Atoi(marker[1])
	if err != nil || season <= 0 {
		return strategy.ParsedName{}, false
	}
	episode, err := strconv.Atoi(marker[2])
	if err != nil || episode <= 0 {
		return strategy.ParsedName{}, false
	}

	parsed := strategy.ParsedName{Season: season, Episode: episode}

	rest := strings.Replace(name, marker[0], "", 1)
	if rawDate := looseDatePattern.FindString(rest); rawDate != "" {
		if date, err := time.Parse(dateLayout, rawDate); err == nil {
			parsed.Date = date
			rest = strings.Replace(rest, rawDate, "", 1)
		}
	}

	parsed.Title = cleanLooseTitle(rest)
	return parsed, true
}

func (p *Parser) Format(n strategy.ParsedName) string {
	return fmt.Sprintf("S%03dE%03d - %s - %s", n.Season, n.Episode, n.Date.Format(dateLayout), n.Title)
}

// cleanLooseTitle strips the separator debris left behind after removing the
// episode marker and date from a malformed name.
func cleanLooseTitle(s string) string {
	for _, sep := range []string{" - ", "- ", " -"} {
		s = strings.ReplaceAll(s, sep, " ")
	}
	s = strings.Trim(s, " -")
	return strings.Join(strings.Fields(s), " ")
}
