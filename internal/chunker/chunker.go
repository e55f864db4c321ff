// Package chunker splits extracted text into overlapping retrieval chunks.
package chunker

import (
	"github.com/terasky-int/sow-dataset/internal/core/domain"
)

// DefaultSize is the default maximum number of runes per chunk.
const DefaultSize = 500

// Chunker splits text into bounded chunks with deterministic boundaries.
// Splitting is a pure function: the same (text, size, overlap) triple
// always produces byte-identical chunks.
type Chunker struct {
	size    int
	overlap int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithSize sets the maximum chunk size in runes.
func WithSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in runes.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a chunker. The default overlap is a tenth of the chunk
// size, preserving cross-boundary context for retrieval.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:    DefaultSize,
		overlap: -1,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.overlap < 0 {
		c.overlap = c.size / 10
	}
	// Overlap must leave room for forward progress.
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}

	return c
}

// Size returns the configured maximum chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks the text of one document. Every rune of text is covered
// by at least one chunk; offsets are rune offsets. Text shorter than the
// chunk size yields exactly one chunk.
func (c *Chunker) Split(path, text string) []domain.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	estimated := n/(c.size-c.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	for index := 0; ; index++ {
		end := start + c.size
		if end >= n {
			end = n
		} else {
			end = c.boundary(runes, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			ID:           domain.ChunkID(path, index),
			DocumentPath: path,
			Index:        index,
			Text:         string(runes[start:end]),
			Start:        start,
			End:          end,
		})

		if end == n {
			break
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

// boundary picks the cut point for a chunk starting at start whose hard
// limit is limit. It prefers the last paragraph break in the second half
// of the window, then the last sentence end, and falls back to a hard
// cut at the limit when no boundary exists.
func (c *Chunker) boundary(runes []rune, start, limit int) int {
	min := start + c.size/2
	if min < start+1 {
		min = start + 1
	}

	// Paragraph break: cut just after a blank line.
	for j := limit; j > min; j-- {
		if runes[j-1] == '\n' && runes[j-2] == '\n' {
			return j
		}
	}

	// Sentence end or line break.
	for j := limit; j > min; j-- {
		switch runes[j-1] {
		case '.', '!', '?', '\n':
			return j
		}
	}

	return limit
}
