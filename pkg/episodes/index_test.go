package episodes

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pelosub/pelosub/pkg/library"
	"github.com/pelosub/pelosub/pkg/subscriptions"
)

func TestBuild_MergesBothPopulations(t *testing.T) {
	media := []library.Entry{
		{Activity: "Cycling", Instructor: "Alex Toussaint", Season: 20, Episode: 1},
		{Activity: "Cycling", Instructor: "Alex Toussaint", Season: 20, Episode: 3},
		{Activity: "Yoga", Instructor: "Aditi Shah", Season: 30, Episode: 7},
	}
	subs := []subscriptions.Entry{
		{Activity: "Cycling", Instructor: "Alex Toussaint", Season: 20, Episode: 5},
		{Activity: "Strength", Instructor: "Andy Speer", Season: 10, Episode: 2},
	}

	idx := Build(media, subs)

	cycling := Key{Activity: "Cycling", Instructor: "Alex Toussaint", Season: 20}
	assert.Equal(t, 5, idx.Max(cycling))
	assert.Equal(t, 6, idx.Next(cycling))
	assert.Equal(t, 3, idx.Count(cycling))

	yoga := Key{Activity: "Yoga", Instructor: "Aditi Shah", Season: 30}
	assert.Equal(t, 8, idx.Next(yoga))

	unseen := Key{Activity: "Rowing", Instructor: "Matt Wilpers", Season: 20}
	assert.Equal(t, 0, idx.Max(unseen))
	assert.Equal(t, 1, idx.Next(unseen))
}

func TestBuild_OrderIndependent(t *testing.T) {
	a := []library.Entry{
		{Activity: "Cycling", Instructor: "Alex Toussaint", Season: 20, Episode: 4},
		{Activity: "Cycling", Instructor: "Alex Toussaint", Season: 20, Episode: 9},
	}
	b := []library.Entry{a[1], a[0]}

	assert.Equal(t, Build(a, nil).Max(Key{"Cycling", "Alex Toussaint", 20}),
		Build(b, nil).Max(Key{"Cycling", "Alex Toussaint", 20}))
}

func TestIndex_SeasonsAreSeparateBuckets(t *testing.T) {
	idx := NewIndex()
	idx.Observe(Key{"Cycling", "Alex Toussaint", 20}, 8)
	idx.Observe(Key{"Cycling", "Alex Toussaint", 30}, 2)

	assert.Equal(t, 9, idx.Next(Key{"Cycling", "Alex Toussaint", 20}))
	assert.Equal(t, 3, idx.Next(Key{"Cycling", "Alex Toussaint", 30}))
}

func TestIndex_Keys(t *testing.T) {
	idx := NewIndex()
	idx.Observe(Key{"Yoga", "Aditi Shah", 30}, 1)
	idx.Observe(Key{"Cycling", "Alex Toussaint", 30}, 1)
	idx.Observe(Key{"Cycling", "Alex Toussaint", 20}, 1)

	assert.Equal(t, []Key{
		{"Cycling", "Alex Toussaint", 20},
		{"Cycling", "Alex Toussaint", 30},
		{"Yoga", "Aditi Shah", 30},
	}, idx.Keys())
}
