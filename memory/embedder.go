package memory

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/crewflow/types"
)

// Embedder maps text to a fixed-dimension vector for semantic recall.
type Embedder interface {
	// Embed returns the vector for one text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimension returns the vector length every Embed call produces.
	Dimension() int
}

// defaultEmbedConcurrency 批量嵌入的默认并发度
const defaultEmbedConcurrency = 4

// EmbedBatch embeds texts concurrently, preserving input order. A
// concurrency of zero or less falls back to the default.
func EmbedBatch(ctx context.Context, embedder Embedder, texts []string, concurrency int) ([][]float64, error) {
	if embedder == nil {
		return nil, types.NewInvalidRequestError("embedder is nil")
	}
	if len(texts) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = defaultEmbedConcurrency
	}

	vectors := make([][]float64, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, text := range texts {
		g.Go(func() error {
			vec, err := embedder.Embed(gctx, text)
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
