package strategy

import "time"

// ParsedName is the result of parsing an episode directory name.
type ParsedName struct {
	Season  int
	Episode int
	Date    time.Time
	Title   string
}

// NameParser maps raw directory names to season/episode/title fields and back.
type NameParser interface {
	// Parse applies the strict naming convention. It reports false when the
	// name does not match; callers must skip such names, never default them.
	Parse(name string) (ParsedName, bool)
	// ParseLoose is the permissive form used only by repair: it salvages a
	// season/episode marker from anywhere in the name and makes a best-effort
	// guess at the date and title.
	ParseLoose(name string) (ParsedName, bool)
	// Format renders the canonical directory name for the given fields.
	Format(n ParsedName) string
}

// PathStrategy maps an entry's fields to on-disk locations and to the
// subscription store's directory override.
type PathStrategy interface {
	// EpisodePath returns the directory an episode belongs at under root.
	EpisodePath(root, activity, instructor string, n ParsedName) string
	// ShowDirectory returns the store override of the form
	// {root}/{activity}/{instructor}. Always slash separated; it is a
	// configuration value, not a host path.
	ShowDirectory(root, activity, instructor string) string
}

// Normalizer collapses raw activity labels to a canonical activity.
type Normalizer interface {
	// Canonical maps a raw label to its canonical activity. It reports false
	// for labels that do not belong to the domain.
	Canonical(raw string) (string, bool)
	// Activities lists every canonical activity in a stable order.
	Activities() []string
}
