package tokencount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCountEmpty(t *testing.T) {
	c := NewCounter(zap.NewNop())
	assert.Equal(t, 0, c.Count(""))
}

func TestCountPositive(t *testing.T) {
	// Works with either the real encoding or the estimate fallback, so the
	// test does not depend on network access for BPE data.
	c := NewCounter(zap.NewNop())
	assert.Positive(t, c.Count("hello world"))
}

func TestCountGrowsWithInput(t *testing.T) {
	c := NewCounter(zap.NewNop())
	short := c.Count("one sentence about storage.")
	long := c.Count(strings.Repeat("one sentence about storage. ", 50))
	assert.Greater(t, long, short)
}

func TestEstimateASCII(t *testing.T) {
	// 40 ASCII chars at ~4 chars/token.
	got := Estimate(strings.Repeat("abcd", 10))
	assert.Equal(t, 10, got)
}

func TestEstimateCJK(t *testing.T) {
	// CJK text tokenizes denser than ASCII.
	cjk := strings.Repeat("中文内容", 10)
	ascii := strings.Repeat("abcd", 10)
	assert.Greater(t, Estimate(cjk), Estimate(ascii))
}

func TestEstimateMinimumOne(t *testing.T) {
	assert.Equal(t, 1, Estimate("a"))
	assert.Equal(t, 0, Estimate(""))
}
