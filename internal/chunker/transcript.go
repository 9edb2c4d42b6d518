package chunker

import (
	"regexp"
	"strings"

	"github.com/lumenworks/briefbase/internal/domain"
)

// transcriptLinePattern matches "[timestamp] Speaker: text" lines as emitted
// by meeting transcription services.
var transcriptLinePattern = regexp.MustCompile(`^\[([^\]]+)\]\s*([^:]+):\s*(.*)$`)

// TranscriptOptions controls transcript chunking. OverlapSize is expressed
// in characters but applied as trailing floor(OverlapSize/5) whole words, so
// speaker turns are never split mid-word by the overlap seed.
type TranscriptOptions struct {
	MaxChunkSize int
	OverlapSize  int
	Estimator    TokenEstimator
}

// DefaultTranscriptOptions mirrors the prose chunker defaults.
func DefaultTranscriptOptions() TranscriptOptions {
	return TranscriptOptions{
		MaxChunkSize: 1500,
		OverlapSize:  200,
		Estimator:    DefaultEstimator(),
	}
}

func (o *TranscriptOptions) validate() error {
	if o.MaxChunkSize <= 0 {
		return domain.NewValidationError("transcript chunk size must be positive")
	}
	if o.OverlapSize < 0 {
		return domain.NewValidationError("transcript overlap cannot be negative")
	}
	if o.OverlapSize >= o.MaxChunkSize {
		return domain.NewValidationError("transcript overlap must be smaller than chunk size")
	}
	if o.Estimator == nil {
		o.Estimator = DefaultEstimator()
	}
	return nil
}

// ChunkTranscript splits a speaker-attributed transcript into chunks, each
// tagged with the first timestamp and speaker seen in its buffer. Lines that
// do not match the speaker pattern are carried verbatim without updating
// attribution. When no line matches at all, the whole transcript is chunked
// word-wise with empty attribution instead.
func ChunkTranscript(text string, opts TranscriptOptions) ([]domain.Chunk, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	normalized := Normalize(text)
	if normalized == "" {
		return nil, nil
	}

	overlapWords := opts.OverlapSize / 5

	var (
		chunks       []domain.Chunk
		buffer       strings.Builder
		seeded       string
		speaker      string
		timestamp    string
		bufferStart  = -1
		bufferEnd    int
		matchedAny   bool
		lineOffset   int
	)

	flush := func() {
		content := strings.TrimSpace(seeded + buffer.String())
		if content != "" {
			start := bufferStart
			if start < 0 {
				start = 0
			}
			end := bufferEnd
			if end <= start {
				end = start + len(content)
			}
			chunks = append(chunks, domain.Chunk{
				Content:    content,
				ChunkIndex: len(chunks),
				StartChar:  start,
				EndChar:    end,
				Metadata: domain.ChunkMetadata{
					WordCount:     len(strings.Fields(content)),
					TokenEstimate: opts.Estimator.Estimate(content),
					Speaker:       speaker,
					Timestamp:     timestamp,
				},
			})
			seeded = trailingWords(content, overlapWords)
		}
		buffer.Reset()
		speaker = ""
		timestamp = ""
		bufferStart = -1
	}

	for _, line := range strings.Split(normalized, "\n") {
		start := lineOffset
		lineOffset += len(line) + 1

		lineText := line
		var lineSpeaker, lineTimestamp string
		if m := transcriptLinePattern.FindStringSubmatch(line); m != nil {
			matchedAny = true
			lineTimestamp = strings.TrimSpace(m[1])
			lineSpeaker = strings.TrimSpace(m[2])
			lineText = m[3]
		}

		if lineText == "" {
			continue
		}

		if buffer.Len() > 0 && buffer.Len()+len(lineText)+1 > opts.MaxChunkSize {
			flush()
		}

		if buffer.Len() > 0 {
			buffer.WriteString(" ")
		}
		buffer.WriteString(lineText)
		if bufferStart < 0 {
			bufferStart = start
		}
		bufferEnd = start + len(line)

		// Attribution comes from the first matching line in the buffer;
		// unmatched lines never update it.
		if lineSpeaker != "" && speaker == "" && timestamp == "" {
			speaker = lineSpeaker
			timestamp = lineTimestamp
		}
	}
	flush()

	if !matchedAny {
		return chunkWordwise(normalized, opts)
	}
	return chunks, nil
}

// chunkWordwise is the lexical fallback for transcripts without speaker
// structure: whole-word windows bounded by MaxChunkSize characters, with a
// trailing floor(OverlapSize/5)-word overlap between windows.
func chunkWordwise(text string, opts TranscriptOptions) ([]domain.Chunk, error) {
	words := splitWords(text)
	if len(words) == 0 {
		return nil, nil
	}

	overlapWords := opts.OverlapSize / 5
	var chunks []domain.Chunk

	start := 0
	for start < len(words) {
		size := 0
		end := start
		for end < len(words) {
			wordLen := len(words[end].text)
			if size > 0 {
				wordLen++
			}
			if size+wordLen > opts.MaxChunkSize && size > 0 {
				break
			}
			size += wordLen
			end++
		}

		parts := make([]string, 0, end-start)
		for _, w := range words[start:end] {
			parts = append(parts, w.text)
		}
		content := strings.Join(parts, " ")
		last := words[end-1]
		chunks = append(chunks, domain.Chunk{
			Content:    content,
			ChunkIndex: len(chunks),
			StartChar:  words[start].offset,
			EndChar:    last.offset + len(last.text),
			Metadata: domain.ChunkMetadata{
				WordCount:     end - start,
				TokenEstimate: opts.Estimator.Estimate(content),
			},
		})

		if end >= len(words) {
			break
		}
		next := end - overlapWords
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks, nil
}

type wordSpan struct {
	text   string
	offset int
}

func splitWords(text string) []wordSpan {
	var words []wordSpan
	start := -1
	for i, r := range text {
		switch {
		case r == ' ' || r == '\n':
			if start >= 0 {
				words = append(words, wordSpan{text: text[start:i], offset: start})
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		words = append(words, wordSpan{text: text[start:], offset: start})
	}
	return words
}

// trailingWords returns the last n whole words of s joined by single spaces,
// with a trailing space so the next buffer can append directly.
func trailingWords(s string, n int) string {
	if n <= 0 {
		return ""
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	if len(fields) > n {
		fields = fields[len(fields)-n:]
	}
	return strings.Join(fields, " ") + " "
}
