// HashEmbedder 的确定性嵌入器测试实现。
package mocks

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashEmbedder 把文本映射为词袋向量:每个词经 FNV 哈希落入固定桶,
// 最后做 L2 归一化。相同文本恒得相同向量,词汇重叠越多余弦越高。
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a deterministic embedder. dim<=0 means 64.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &HashEmbedder{dim: dim}
}

// Embed maps text to a normalized bag-of-words vector.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, e.dim)
	for _, token := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[int(h.Sum32())%e.dim]++
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// Dimension returns the vector length.
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// FailingEmbedder 恒定失败的嵌入器,用于错误注入
type FailingEmbedder struct {
	Dim int
	Err error
}

// Embed always fails with the configured error.
func (e *FailingEmbedder) Embed(context.Context, string) ([]float64, error) {
	return nil, e.Err
}

// Dimension returns the configured dimension.
func (e *FailingEmbedder) Dimension() int {
	if e.Dim <= 0 {
		return 64
	}
	return e.Dim
}
