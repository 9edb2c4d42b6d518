package service

import (
	"fmt"
	"strings"

	"github.com/lumenworks/briefbase/internal/domain"
)

// NoRelevantDocuments is returned by BuildContext when retrieval produced
// zero chunks. Callers must treat it as a valid context, not an error.
const NoRelevantDocuments = "No relevant documents found for this query."

const (
	contextSeparator = "\n\n---\n\n"
	excerptMaxChars  = 200
)

// Citation is the UI-facing projection of a retrieved chunk
type Citation struct {
	ID           string  `json:"id"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	Excerpt      string  `json:"excerpt"`
	Similarity   float32 `json:"similarity"`
	ChunkIndex   int     `json:"chunk_index"`
}

// BuildContext formats retrieved chunks into a single prompt-ready block
// with source attribution markers
func BuildContext(chunks []*domain.RetrievedChunk) string {
	if len(chunks) == 0 {
		return NoRelevantDocuments
	}

	blocks := make([]string, 0, len(chunks))
	for i, c := range chunks {
		header := fmt.Sprintf("[Source %d: %s (Chunk %d)]", i+1, c.DocumentName, c.ChunkIndex+1)
		blocks = append(blocks, header+"\n"+c.Content)
	}
	return strings.Join(blocks, contextSeparator)
}

// ExtractCitations produces the citation list parallel to the assembled
// context. Pure projection, no recomputation.
func ExtractCitations(chunks []*domain.RetrievedChunk) []Citation {
	citations := make([]Citation, 0, len(chunks))
	for _, c := range chunks {
		citations = append(citations, Citation{
			ID:           c.ChunkID,
			DocumentID:   c.DocumentID,
			DocumentName: c.DocumentName,
			Excerpt:      makeExcerpt(c.Content),
			Similarity:   c.Similarity,
			ChunkIndex:   c.ChunkIndex,
		})
	}
	return citations
}

func makeExcerpt(content string) string {
	if len(content) <= excerptMaxChars {
		return content
	}
	return content[:excerptMaxChars] + "..."
}
