package scraper

import (
	"context"
	"fmt"
)

//go:generate mockgen -destination=mocks/mock_scraper.go -package=mocks github.com/pelosub/pelosub/pkg/scraper Scraper

const playerURLFormat = "https://members.onepeloton.com/classes/player/%s"

// Class is one scraped class candidate. Fields come straight from the class
// listing; numbering and grouping happen during reconciliation.
type Class struct {
	ContentID       string `json:"contentId"`
	Title           string `json:"title"`
	Instructor      string `json:"instructor"`
	Activity        string `json:"activity"`
	DurationMinutes int    `json:"durationMinutes"`
	PlayerURL       string `json:"playerUrl"`
}

// DownloadURL returns the player URL the downloader subscribes to.
func (c Class) DownloadURL() string {
	if c.PlayerURL != "" {
		return c.PlayerURL
	}
	return fmt.Sprintf(playerURLFormat, c.ContentID)
}

// Scraper finds new class candidates for an activity. Implementations own
// session handling and pagination; callers only see the resulting classes.
type Scraper interface {
	FindClasses(ctx context.Context, activity string, limit int) ([]Class, error)
}
