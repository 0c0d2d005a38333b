// Package transcript holds the timed text of a video: parsing imported
// transcripts, speech-to-text through Whisper, and time-window lookups
// used to ground quizzes and the assistant.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Chunk is one timed span of text. On the wire it is
// {"text": "...", "timestamp": [start, end]}.
type Chunk struct {
	Text  string
	Start float64
	End   float64
}

type chunkJSON struct {
	Text      string    `json:"text"`
	Timestamp []float64 `json:"timestamp"`
}

func (c Chunk) MarshalJSON() ([]byte, error) {
	return json.Marshal(chunkJSON{Text: c.Text, Timestamp: []float64{c.Start, c.End}})
}

func (c *Chunk) UnmarshalJSON(data []byte) error {
	var raw chunkJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.Text = raw.Text
	c.Start, c.End = 0, 0
	if len(raw.Timestamp) > 0 {
		c.Start = raw.Timestamp[0]
	}
	if len(raw.Timestamp) > 1 {
		c.End = raw.Timestamp[1]
	} else {
		c.End = c.Start
	}
	return nil
}

// Document is a full transcript.
type Document struct {
	Chunks []Chunk `json:"chunks"`
	Text   string  `json:"text"`
}

// ErrEmpty is returned when a transcript has no usable chunks.
var ErrEmpty = errors.New("transcript has no chunks")

// Parse decodes a transcript. It accepts either a {"chunks": [...], "text": ...}
// object or a bare chunk array. Chunks are sorted by start time, blank ones
// dropped, and Text is rebuilt from the chunks when absent.
func Parse(data []byte) (*Document, error) {
	trimmed := strings.TrimSpace(string(data))
	var doc Document
	switch {
	case strings.HasPrefix(trimmed, "["):
		if err := json.Unmarshal([]byte(trimmed), &doc.Chunks); err != nil {
			return nil, fmt.Errorf("parse transcript chunks: %w", err)
		}
	default:
		if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
			return nil, fmt.Errorf("parse transcript: %w", err)
		}
	}
	if err := doc.normalize(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *Document) normalize() error {
	kept := d.Chunks[:0]
	for _, c := range d.Chunks {
		c.Text = strings.TrimSpace(c.Text)
		if c.Text == "" {
			continue
		}
		if math.IsNaN(c.Start) || math.IsInf(c.Start, 0) || c.Start < 0 {
			return fmt.Errorf("chunk %q: invalid start time %v", c.Text, c.Start)
		}
		if math.IsNaN(c.End) || math.IsInf(c.End, 0) || c.End < c.Start {
			c.End = c.Start
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return ErrEmpty
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	d.Chunks = kept

	if strings.TrimSpace(d.Text) == "" {
		parts := make([]string, len(kept))
		for i, c := range kept {
			parts[i] = c.Text
		}
		d.Text = strings.Join(parts, " ")
	}
	return nil
}

// Window returns the chunks overlapping [at-radius, at+radius].
func (d *Document) Window(at, radius float64) []Chunk {
	if radius < 0 {
		radius = 0
	}
	lo, hi := at-radius, at+radius
	var out []Chunk
	for _, c := range d.Chunks {
		if c.End >= lo && c.Start <= hi {
			out = append(out, c)
		}
	}
	return out
}

// At returns the chunk being spoken at the given second, if any.
func (d *Document) At(sec float64) (Chunk, bool) {
	for _, c := range d.Chunks {
		if sec >= c.Start && sec <= c.End {
			return c, true
		}
	}
	return Chunk{}, false
}

// Duration is the end time of the last chunk.
func (d *Document) Duration() float64 {
	var end float64
	for _, c := range d.Chunks {
		end = math.Max(end, c.End)
	}
	return end
}

// Format renders chunks one per line as "[mm:ss] text".
func Format(chunks []Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %s", Clock(c.Start), c.Text)
	}
	return b.String()
}

// Clock formats seconds as mm:ss, or h:mm:ss past an hour.
func Clock(sec float64) string {
	if sec < 0 || math.IsNaN(sec) {
		sec = 0
	}
	total := int(sec)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
