package chunker

import (
	"fmt"
	"strings"

	"github.com/lumenworks/briefbase/internal/domain"
)

// Options controls text chunking. Separators are tried in order, coarse to
// fine; the first separator type found anywhere in the trailing window wins,
// and within that type the last occurrence is used.
type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Separators   []string
	Estimator    TokenEstimator
}

// DefaultSeparators prefers paragraph breaks, then line breaks, then
// sentence-ending punctuation, then clause punctuation, then plain spaces.
var DefaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " "}

// DefaultOptions provides sane defaults for chunking prose.
func DefaultOptions() Options {
	return Options{
		ChunkSize:    1500,
		ChunkOverlap: 200,
		Separators:   DefaultSeparators,
		Estimator:    DefaultEstimator(),
	}
}

func (o *Options) validate() error {
	if o.ChunkSize <= 0 {
		return domain.NewValidationError(fmt.Sprintf("chunk size must be positive, got %d", o.ChunkSize))
	}
	if o.ChunkOverlap < 0 {
		return domain.NewValidationError(fmt.Sprintf("chunk overlap cannot be negative, got %d", o.ChunkOverlap))
	}
	if o.ChunkOverlap >= o.ChunkSize {
		return domain.NewValidationError("chunk overlap must be smaller than chunk size")
	}
	if len(o.Separators) == 0 {
		o.Separators = DefaultSeparators
	}
	if o.Estimator == nil {
		o.Estimator = DefaultEstimator()
	}
	return nil
}

// Normalize collapses line endings to \n, converts tabs to spaces, and trims
// surrounding whitespace. Chunk offsets are measured against the text this
// returns.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\t", " ")
	return strings.TrimSpace(text)
}

// ChunkText splits normalized text into an ordered sequence of overlapping
// chunks. Each chunk ends on a natural boundary when one can be found in the
// trailing window of width ChunkOverlap; otherwise it falls back to a hard
// cut, mid-word if need be. Consecutive chunks overlap by at most
// ChunkOverlap characters and indices are contiguous from zero.
func ChunkText(text string, opts Options) ([]domain.Chunk, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	normalized := Normalize(text)
	if normalized == "" {
		return nil, nil
	}

	if len(normalized) <= opts.ChunkSize {
		return []domain.Chunk{newChunk(normalized, 0, 0, opts.Estimator)}, nil
	}

	chunks := make([]domain.Chunk, 0, len(normalized)/opts.ChunkSize+1)
	pos := 0
	for pos < len(normalized) {
		end := pos + opts.ChunkSize
		if end > len(normalized) {
			end = len(normalized)
		}

		if end < len(normalized) {
			end = findBoundary(normalized, pos, end, opts)
		}

		raw := normalized[pos:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			start := pos + strings.Index(raw, trimmed)
			chunks = append(chunks, newChunk(trimmed, len(chunks), start, opts.Estimator))
		}

		if end >= len(normalized) {
			break
		}

		next := end - opts.ChunkOverlap
		if next <= pos {
			// No forward progress, e.g. overlap covers the remainder.
			next = end
		}
		pos = next
	}

	return chunks, nil
}

// findBoundary scans the trailing window of width ChunkOverlap ending at the
// naive boundary. The first separator type present in the window wins, at
// its last occurrence, and the cut lands immediately after the separator.
func findBoundary(text string, pos, naiveEnd int, opts Options) int {
	windowStart := naiveEnd - opts.ChunkOverlap
	if windowStart < pos {
		windowStart = pos
	}
	window := text[windowStart:naiveEnd]
	for _, sep := range opts.Separators {
		if idx := strings.LastIndex(window, sep); idx >= 0 {
			return windowStart + idx + len(sep)
		}
	}
	return naiveEnd
}

func newChunk(content string, index, start int, estimator TokenEstimator) domain.Chunk {
	return domain.Chunk{
		Content:    content,
		ChunkIndex: index,
		StartChar:  start,
		EndChar:    start + len(content),
		Metadata: domain.ChunkMetadata{
			WordCount:     len(strings.Fields(content)),
			TokenEstimate: estimator.Estimate(content),
		},
	}
}

// WithDocumentContext prefixes each chunk with a document marker and
// recomputes size metadata on the prefixed content. Offsets still refer to
// the unprefixed normalized text, so callers needing raw offsets must chunk
// before applying this transform.
func WithDocumentContext(chunks []domain.Chunk, documentName string, estimator TokenEstimator) []domain.Chunk {
	if estimator == nil {
		estimator = DefaultEstimator()
	}
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		content := fmt.Sprintf("[Document: %s, Chunk %d/%d]\n%s", documentName, i+1, len(chunks), c.Content)
		c.Content = content
		c.Metadata.WordCount = len(strings.Fields(content))
		c.Metadata.TokenEstimate = estimator.Estimate(content)
		out[i] = c
	}
	return out
}

// MergeSmallChunks folds any chunk shorter than minSize into its successor
// and re-sequences indices. The final chunk is kept even when small because
// it has no successor to absorb it. Intended as an optional post-pass.
func MergeSmallChunks(chunks []domain.Chunk, minSize int, estimator TokenEstimator) []domain.Chunk {
	if minSize <= 0 || len(chunks) < 2 {
		return chunks
	}
	if estimator == nil {
		estimator = DefaultEstimator()
	}

	out := make([]domain.Chunk, 0, len(chunks))
	var pending *domain.Chunk
	for i := range chunks {
		c := chunks[i]
		if pending != nil {
			c.Content = pending.Content + "\n" + c.Content
			c.StartChar = pending.StartChar
			c.Metadata.WordCount = len(strings.Fields(c.Content))
			c.Metadata.TokenEstimate = estimator.Estimate(c.Content)
			pending = nil
		}
		if len(c.Content) < minSize && i < len(chunks)-1 {
			pending = &c
			continue
		}
		out = append(out, c)
	}

	for i := range out {
		out[i].ChunkIndex = i
	}
	return out
}
