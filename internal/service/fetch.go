package service

import (
	"context"
	"fmt"

	"bcp-export/internal/repository"
)

// fetchChunks runs fetch for consecutive id chunks strictly one after the
// other and concatenates the results. report is called after every chunk.
func fetchChunks[T any](
	ctx context.Context,
	ids []string,
	size int,
	fetch func(ctx context.Context, ids []string) ([]T, error),
	report func(done, total int),
) ([]T, error) {
	chunks := repository.Chunk(ids, size)

	var out []T
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := fetch(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}
		out = append(out, part...)
		if report != nil {
			report(i+1, len(chunks))
		}
	}
	return out, nil
}

// span maps done/total onto the progress range [from, to].
func span(from, to float64, done, total int) float64 {
	if total <= 0 {
		return to
	}
	return from + (to-from)*float64(done)/float64(total)
}
