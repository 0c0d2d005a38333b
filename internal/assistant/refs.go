package assistant

import (
	"regexp"
	"strconv"

	"github.com/abhisek/lumora/internal/transcript"
)

var refPattern = regexp.MustCompile(`\[timestamp\]\((\d+)\)`)

// Reference is a cited moment of the video.
type Reference struct {
	Seconds int
	// Offset is the byte offset of the citation in the answer text.
	Offset int
}

// ParseReferences extracts [timestamp](N) citations in order. Citations
// past duration are dropped when duration is positive.
func ParseReferences(text string, duration float64) []Reference {
	var out []Reference
	for _, m := range refPattern.FindAllStringSubmatchIndex(text, -1) {
		sec, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		if duration > 0 && float64(sec) > duration+1 {
			continue
		}
		out = append(out, Reference{Seconds: sec, Offset: m[0]})
	}
	return out
}

// Render replaces citations with a readable [mm:ss] label.
func Render(text string) string {
	return refPattern.ReplaceAllStringFunc(text, func(s string) string {
		sec, err := strconv.Atoi(refPattern.FindStringSubmatch(s)[1])
		if err != nil {
			return s
		}
		return "[" + transcript.Clock(float64(sec)) + "]"
	})
}
