package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCharEstimator(t *testing.T) {
	e := CharEstimator{CharsPerToken: 4}

	assert.Equal(t, 0, e.Estimate(""))
	assert.Equal(t, 1, e.Estimate("a"))
	assert.Equal(t, 1, e.Estimate("abcd"))
	assert.Equal(t, 2, e.Estimate("abcde"))
	assert.Equal(t, 25, e.Estimate(strings.Repeat("x", 100)))
}

func TestCharEstimator_ZeroCharsPerToken(t *testing.T) {
	// Zero-value struct falls back to the default ratio.
	e := CharEstimator{}
	assert.Equal(t, 2, e.Estimate("abcdefgh"))
}

func TestDefaultEstimator(t *testing.T) {
	e := DefaultEstimator()
	assert.Equal(t, 3, e.Estimate(strings.Repeat("y", 12)))
}

func TestTiktokenEstimator_NilEncoding(t *testing.T) {
	var e TiktokenEstimator
	assert.Equal(t, 0, e.Estimate("anything"))
}
