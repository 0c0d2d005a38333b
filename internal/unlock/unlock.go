// Package unlock computes which videos of a course a student may open.
//
// Access is sequential: the first video is always open and each later one
// opens only when its predecessor is completed and, if the predecessor has
// a quiz, that quiz is passed. The computation never fails and is meant to
// be rerun from stored data on every course load.
package unlock

import (
	"slices"
	"strings"

	"github.com/abhisek/lumora/internal/progress"
)

// Item is one video as seen by the gate.
type Item struct {
	VideoID  string
	Position int
	HasQuiz  bool
}

// Access is the gate's verdict for one item.
type Access struct {
	Item
	Accessible bool
}

// Order returns a copy of items sorted by position, ties broken by video ID.
// Colliding positions from concurrent reorders still yield one stable order.
func Order(items []Item) []Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b Item) int {
		if a.Position != b.Position {
			return a.Position - b.Position
		}
		return strings.Compare(a.VideoID, b.VideoID)
	})
	return out
}

// ComputeAccessibility returns one flag per item of ordered. Once an item is
// locked every later item is locked too, whatever its own recorded progress.
func ComputeAccessibility(ordered []Item, progressByVideo map[string]progress.Record, quizPassed map[string]bool) []bool {
	out := make([]bool, len(ordered))
	for i := range ordered {
		if i == 0 {
			out[i] = true
			continue
		}
		if !out[i-1] {
			break
		}
		prev := ordered[i-1]
		rec, ok := progressByVideo[prev.VideoID]
		var recPtr *progress.Record
		if ok {
			recPtr = &rec
		}
		out[i] = progress.MayAdvance(recPtr, prev.HasQuiz, quizPassed[prev.VideoID])
	}
	return out
}

// Evaluate orders items and computes their accessibility in one step.
func Evaluate(items []Item, progressByVideo map[string]progress.Record, quizPassed map[string]bool) []Access {
	ordered := Order(items)
	flags := ComputeAccessibility(ordered, progressByVideo, quizPassed)
	out := make([]Access, len(ordered))
	for i, it := range ordered {
		out[i] = Access{Item: it, Accessible: flags[i]}
	}
	return out
}

// IndexOf returns the index of videoID in ordered, or -1.
func IndexOf(ordered []Item, videoID string) int {
	return slices.IndexFunc(ordered, func(it Item) bool { return it.VideoID == videoID })
}

// Next returns the item after videoID in ordered. ok is false when videoID
// is last or not present.
func Next(ordered []Item, videoID string) (Item, bool) {
	i := IndexOf(ordered, videoID)
	if i < 0 || i+1 >= len(ordered) {
		return Item{}, false
	}
	return ordered[i+1], true
}
