package library

import (
	"fmt"
	"time"
)

// Entry is one discovered on-disk episode directory. Entries are immutable
// once produced by a scan; a repair produces a fresh entry on the next scan.
type Entry struct {
	Activity   string    `json:"activity"`
	Instructor string    `json:"instructor"`
	Season     int       `json:"season"`
	Episode    int       `json:"episode"`
	Title      string    `json:"title"`
	Date       time.Time `json:"date"`
	ModTime    time.Time `json:"-"`
	// Path is relative to the media root.
	Path string `json:"path"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%s/%s S%dE%d - %s", e.Activity, e.Instructor, e.Season, e.Episode, e.Title)
}
