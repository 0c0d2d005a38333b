package quiz

import (
	"fmt"
	"strings"

	"github.com/abhisek/lumora/internal/transcript"
)

const systemPrompt = `You write comprehension quizzes for students who just watched a course video.

Rules:
- Ask only about ideas that are actually explained in the transcript.
- Each question has exactly 4 options and exactly one correct option. correctAnswer is its zero-based index.
- Wrong options should be plausible misunderstandings, not jokes.
- startTime is the second in the video where the answer is explained, taken from the transcript timestamps.
- The explanation says briefly why the correct option is right.
- For every question add two easier reinforcement questions on the same concept.
- Spread the questions across the whole video in chronological order.`

// buildUserMessage renders the video title and timestamped transcript.
func buildUserMessage(title string, doc *transcript.Document, cfg Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Video: %s\n", title)
	fmt.Fprintf(&b, "Number of questions: %d\n", cfg.Questions)

	chunks := doc.Chunks
	if cfg.MaxTranscriptChunks > 0 && len(chunks) > cfg.MaxTranscriptChunks {
		chunks = sample(chunks, cfg.MaxTranscriptChunks)
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript.Format(chunks))
	return b.String()
}

// sample keeps n chunks spread evenly over the input, first and last included.
func sample(chunks []transcript.Chunk, n int) []transcript.Chunk {
	if n <= 1 {
		return chunks[:1]
	}
	out := make([]transcript.Chunk, 0, n)
	step := float64(len(chunks)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, chunks[int(float64(i)*step+0.5)])
	}
	return out
}
