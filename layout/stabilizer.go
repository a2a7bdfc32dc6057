package layout

import (
	"fmt"
	"log/slog"
)

// DefaultMaxIterations bounds the converging phase when no budget is given.
const DefaultMaxIterations = 32

// ContentFunc generates markup from the positions of the previous pass
// (empty on the first call).
type ContentFunc func(prior []Position) (string, error)

// BackendFactory builds a fresh backend session for content.
type BackendFactory func(content string) (Backend, error)

// StabilizeOptions 配置内容稳定化输出。
type StabilizeOptions struct {
	Content    ContentFunc
	NewBackend BackendFactory
	Regions    RegionFunc
	OnPosition PositionFunc
	OnPage     PageFunc
	// MaxIterations caps the number of content generations, counting the
	// one found stable (0 = DefaultMaxIterations). At least 2 are needed.
	MaxIterations int
	MaxRegions    int
	Logger        *slog.Logger
}

// StabilizeStats reports what a stabilized write did.
type StabilizeStats struct {
	Iterations int    // content generations, including the one found stable
	Content    string // the stable content
}

type stabilizeState int

const (
	converging stabilizeState = iota
	final
)

// WriteStabilized repeatedly regenerates content from the positions of the
// previous layout pass until the generated markup stops changing, then
// writes the stable content to sink in one final pass. Only positions of
// the final pass reach opts.OnPosition.
func WriteStabilized(sink Sink, opts StabilizeOptions) (StabilizeStats, error) {
	if opts.Content == nil || opts.NewBackend == nil {
		return StabilizeStats{}, fmt.Errorf("layout: 稳定化输出需要 Content 与 NewBackend")
	}
	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	log := loggerOrDiscard(opts.Logger)

	var (
		positions []Position
		content   string
		haveSeen  bool
		state     = converging
	)
	for iter := 1; ; iter++ {
		if iter > maxIter {
			return StabilizeStats{Iterations: iter - 1}, &NonConvergenceError{Iterations: maxIter}
		}
		next, err := opts.Content(positions)
		if err != nil {
			return StabilizeStats{Iterations: iter}, fmt.Errorf("generate content (iteration %d): %w", iter, err)
		}
		if haveSeen && next == content {
			state = final
		}
		log.Debug("stabilize iteration", "iteration", iter, "bytes", len(next), "stable", state == final)
		content, haveSeen = next, true

		backend, err := opts.NewBackend(content)
		if err != nil {
			return StabilizeStats{Iterations: iter}, err
		}
		pl := NewPlacement(backend)

		if state == final {
			err := Write(pl, sink, WriteOptions{
				Regions:    opts.Regions,
				OnPosition: opts.OnPosition,
				OnPage:     opts.OnPage,
				MaxRegions: opts.MaxRegions,
				Logger:     opts.Logger,
			})
			return StabilizeStats{Iterations: iter, Content: content}, err
		}

		collected := make([]Position, 0, len(positions))
		err = Write(pl, nil, WriteOptions{
			Regions:    opts.Regions,
			OnPosition: func(pos Position) { collected = append(collected, pos) },
			MaxRegions: opts.MaxRegions,
			Logger:     opts.Logger,
		})
		if err != nil {
			return StabilizeStats{Iterations: iter}, fmt.Errorf("layout pass %d: %w", iter, err)
		}
		positions = collected
	}
}
