package episodes

import (
	"sort"

	"github.com/pelosub/pelosub/pkg/library"
	"github.com/pelosub/pelosub/pkg/subscriptions"
)

// Key identifies one numbering bucket. The season is a duration bucket, not a
// chronological season.
type Key struct {
	Activity   string
	Instructor string
	Season     int
}

// Index tracks the highest episode number observed per key across both the
// on-disk library and the subscription store. It is rebuilt from scratch on
// every run; there is no cached state to go stale.
type Index struct {
	max   map[Key]int
	count map[Key]int
}

func NewIndex() *Index {
	return &Index{
		max:   make(map[Key]int),
		count: make(map[Key]int),
	}
}

// Build merges both populations into one index. The merge is a per-key max,
// so it is commutative and idempotent: entry order never changes the result.
func Build(media []library.Entry, subs []subscriptions.Entry) *Index {
	idx := NewIndex()
	for _, e := range media {
		idx.Observe(Key{Activity: e.Activity, Instructor: e.Instructor, Season: e.Season}, e.Episode)
	}
	for _, e := range subs {
		idx.Observe(Key{Activity: e.Activity, Instructor: e.Instructor, Season: e.Season}, e.Episode)
	}
	return idx
}

// Observe records an episode number for a key. The validator calls this as it
// renumbers so later repairs in the same pass see earlier ones.
func (i *Index) Observe(k Key, episode int) {
	if episode > i.max[k] {
		i.max[k] = episode
	}
	i.count[k]++
}

// Max returns the highest episode observed for a key, zero when unseen.
func (i *Index) Max(k Key) int {
	return i.max[k]
}

// Next returns the next free episode number for a key.
func (i *Index) Next(k Key) int {
	return i.max[k] + 1
}

// Count returns how many episodes were observed for a key. A count below Max
// means the numbering has holes; the summary reports those keys.
func (i *Index) Count(k Key) int {
	return i.count[k]
}

// Keys lists every observed key in a stable order.
func (i *Index) Keys() []Key {
	keys := make([]Key, 0, len(i.max))
	for k := range i.max {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].Activity != keys[b].Activity {
			return keys[a].Activity < keys[b].Activity
		}
		if keys[a].Instructor != keys[b].Instructor {
			return keys[a].Instructor < keys[b].Instructor
		}
		return keys[a].Season < keys[b].Season
	})
	return keys
}
