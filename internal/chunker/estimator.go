package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenEstimator estimates the token cost of a piece of text. The chunking
// pipeline only needs a rough, reproducible figure, so the default is a
// character heuristic rather than a tokenizer call.
type TokenEstimator interface {
	Estimate(text string) int
}

const defaultCharsPerToken = 4

// CharEstimator estimates tokens as ceil(len / CharsPerToken). Deterministic
// and I/O-free, which keeps chunking reproducible.
type CharEstimator struct {
	CharsPerToken int
}

func (e CharEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	perToken := e.CharsPerToken
	if perToken <= 0 {
		perToken = defaultCharsPerToken
	}
	return (len(text) + perToken - 1) / perToken
}

// DefaultEstimator returns the character-based heuristic estimator.
func DefaultEstimator() TokenEstimator {
	return CharEstimator{CharsPerToken: defaultCharsPerToken}
}

// TiktokenEstimator counts real tokens with the cl100k_base encoding. It is
// a drop-in replacement for CharEstimator when exact accounting matters more
// than avoiding the encoder's startup cost.
type TiktokenEstimator struct {
	encoding *tiktoken.Tiktoken
}

func NewTiktokenEstimator() (*TiktokenEstimator, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}
	return &TiktokenEstimator{encoding: encoding}, nil
}

func (e *TiktokenEstimator) Estimate(text string) int {
	if e.encoding == nil {
		return 0
	}
	return len(e.encoding.Encode(text, nil, nil))
}
