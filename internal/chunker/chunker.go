// Package chunker splits document text into overlapping drafts sized for
// embedding. Splitting is recursive: coarse separators (paragraphs) are
// tried first, finer ones (sentences, words, characters) only for pieces
// that are still too large.
package chunker

import (
	"fmt"
	"strings"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
)

// DefaultChunkSize is the default target number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of trailing characters carried
// over to the next chunk.
const DefaultChunkOverlap = 200

// DefaultSeparators is the default separator list, coarsest to finest.
// The empty string means character-level splitting and guarantees that
// recursion terminates.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// Chunker splits text into overlapping drafts. It is stateless and safe for
// concurrent use.
type Chunker struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// WithSeparators sets the separator list, coarsest to finest.
func WithSeparators(separators []string) Option {
	return func(c *Chunker) {
		c.separators = separators
	}
}

// New creates a chunker. It returns domain.ErrInvalidInput when the
// configuration cannot produce valid chunks (overlap >= size, size < 1, or
// an empty separator list).
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.chunkSize < 1 {
		return nil, fmt.Errorf("chunk size %d: %w", c.chunkSize, domain.ErrInvalidInput)
	}
	if c.overlap < 0 || c.overlap >= c.chunkSize {
		return nil, fmt.Errorf("overlap %d with chunk size %d: %w", c.overlap, c.chunkSize, domain.ErrInvalidInput)
	}
	if len(c.separators) == 0 {
		return nil, fmt.Errorf("empty separator list: %w", domain.ErrInvalidInput)
	}

	return c, nil
}

// Split chunks text into drafts with indices starting at 0 in document
// order. The metadata map is attached to every draft. Empty or
// whitespace-only text yields no drafts.
func (c *Chunker) Split(text string, metadata map[string]any) []domain.ChunkDraft {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := c.splitRecursive(text, c.separators)

	var drafts []domain.ChunkDraft
	var buf strings.Builder

	seal := func() {
		content := strings.TrimSpace(buf.String())
		if content == "" {
			return
		}
		drafts = append(drafts, domain.ChunkDraft{
			Content:    content,
			ChunkIndex: len(drafts),
			Metadata:   cloneMetadata(metadata),
		})
	}

	for _, piece := range pieces {
		if buf.Len() > 0 && buf.Len()+len(piece) > c.chunkSize {
			sealed := buf.String()
			seal()
			buf.Reset()
			buf.WriteString(c.overlapTail(sealed))
		}
		buf.WriteString(piece)
	}
	seal()

	return drafts
}

// splitRecursive splits text with the first separator that actually occurs,
// re-splitting any piece still longer than the chunk size with the remaining
// separators. Separators stay attached to the preceding piece so that the
// concatenation of all pieces equals the input.
func (c *Chunker) splitRecursive(text string, separators []string) []string {
	if len(separators) == 0 {
		return []string{text}
	}

	sep := separators[0]
	rest := separators[1:]

	if sep == "" {
		// Character-level fallback. Split on runes, never mid-sequence.
		runes := []rune(text)
		pieces := make([]string, len(runes))
		for i, r := range runes {
			pieces[i] = string(r)
		}
		return pieces
	}

	splits := splitAfter(text, sep)
	if len(splits) == 1 {
		// Separator absent, fall through to the next one.
		return c.splitRecursive(text, rest)
	}

	var pieces []string
	for _, split := range splits {
		if len(split) > c.chunkSize {
			pieces = append(pieces, c.splitRecursive(split, rest)...)
		} else {
			pieces = append(pieces, split)
		}
	}
	return pieces
}

// overlapTail returns the trailing overlap of a sealed chunk, trimmed
// forward to the nearest following space so the next chunk does not begin
// mid-word. When no space is found the raw tail is kept.
func (c *Chunker) overlapTail(text string) string {
	if c.overlap == 0 {
		return ""
	}
	if len(text) <= c.overlap {
		return text
	}

	tail := text[len(text)-c.overlap:]
	if i := strings.IndexByte(tail, ' '); i > 0 {
		tail = tail[i+1:]
	}
	return tail
}

// splitAfter is strings.SplitAfter without the trailing empty piece that
// appears when the text ends with the separator.
func splitAfter(text, sep string) []string {
	splits := strings.SplitAfter(text, sep)
	if n := len(splits); n > 1 && splits[n-1] == "" {
		splits = splits[:n-1]
	}
	return splits
}

func cloneMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		out[k] = v
	}
	return out
}
