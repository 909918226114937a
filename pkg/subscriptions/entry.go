package subscriptions

import "fmt"

// Entry is one configured download in the subscription store. Entries already
// on disk are removed from the store on the next reconciliation run.
type Entry struct {
	ContentID   string `json:"contentId"`
	Activity    string `json:"activity"`
	Instructor  string `json:"instructor"`
	Season      int    `json:"season"`
	Episode     int    `json:"episode"`
	Title       string `json:"title"`
	DownloadURL string `json:"downloadUrl"`
}

// GroupKey is the store's duration group header for this entry.
func (e Entry) GroupKey() string {
	return fmt.Sprintf("= %s (%d min)", e.Activity, e.Season)
}

// Remove filters out entries whose content id is present in ids and reports
// how many were dropped.
func Remove(entries []Entry, ids map[string]struct{}) ([]Entry, int) {
	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := ids[e.ContentID]; ok {
			continue
		}
		kept = append(kept, e)
	}
	return kept, len(entries) - len(kept)
}
