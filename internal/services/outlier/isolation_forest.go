package outlier

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const eulerGamma = 0.5772156649

// IsolationForestConfig holds isolation forest parameters.
type IsolationForestConfig struct {
	NEstimators   int
	MaxSamples    int
	Contamination float64
	Seed          int64
}

// IsolationForestOption configures IsolationForest.
type IsolationForestOption func(*IsolationForestConfig)

func WithEstimators(n int) IsolationForestOption {
	return func(c *IsolationForestConfig) { c.NEstimators = n }
}

func WithMaxSamples(n int) IsolationForestOption {
	return func(c *IsolationForestConfig) { c.MaxSamples = n }
}

func WithContamination(f float64) IsolationForestOption {
	return func(c *IsolationForestConfig) { c.Contamination = f }
}

func WithSeed(seed int64) IsolationForestOption {
	return func(c *IsolationForestConfig) { c.Seed = seed }
}

// IsolationForest is a one-dimensional isolation forest. Every call fits a
// fresh forest from its own seeded source, so results do not depend on call
// order or concurrency.
type IsolationForest struct {
	cfg IsolationForestConfig
}

func NewIsolationForest(opts ...IsolationForestOption) *IsolationForest {
	cfg := IsolationForestConfig{
		NEstimators:   80,
		MaxSamples:    256,
		Contamination: 0.01,
		Seed:          42,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &IsolationForest{cfg: cfg}
}

func (f *IsolationForest) Name() string { return "iforest" }

// FitAndClassify fits over points and reports whether query scores below the
// contamination quantile of the training scores.
func (f *IsolationForest) FitAndClassify(ctx context.Context, points []float64, query float64) (bool, error) {
	if err := checkPoints(points, 2); err != nil {
		return false, err
	}
	if f.cfg.NEstimators < 1 || f.cfg.MaxSamples < 2 {
		return false, fmt.Errorf("%w: invalid forest size %d/%d", ErrDegenerateFit, f.cfg.NEstimators, f.cfg.MaxSamples)
	}
	if f.cfg.Contamination <= 0 || f.cfg.Contamination >= 0.5 {
		return false, fmt.Errorf("%w: contamination %v out of range", ErrDegenerateFit, f.cfg.Contamination)
	}

	rng := rand.New(rand.NewSource(f.cfg.Seed))
	psi := len(points)
	if psi > f.cfg.MaxSamples {
		psi = f.cfg.MaxSamples
	}
	maxDepth := int(math.Ceil(math.Log2(float64(psi))))

	trees := make([]*itree, f.cfg.NEstimators)
	sample := make([]float64, psi)
	for i := range trees {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		for j, idx := range rng.Perm(len(points))[:psi] {
			sample[j] = points[idx]
		}
		trees[i] = grow(rng, sample, 0, maxDepth)
	}

	norm := averagePathLength(psi)
	score := func(x float64) float64 {
		var sum float64
		for _, t := range trees {
			sum += t.pathLength(x, 0)
		}
		return -math.Pow(2, -(sum/float64(len(trees)))/norm)
	}

	train := make([]float64, len(points))
	for i, p := range points {
		train[i] = score(p)
	}
	offset := percentile(train, 100*f.cfg.Contamination)

	return score(query) < offset, nil
}

// itree is an isolation tree node; a node with nil children is a leaf.
type itree struct {
	split       float64
	size        int
	left, right *itree
}

func grow(rng *rand.Rand, xs []float64, depth, maxDepth int) *itree {
	if depth >= maxDepth || len(xs) <= 1 {
		return &itree{size: len(xs)}
	}
	lo, hi := floats.Min(xs), floats.Max(xs)
	if lo == hi {
		return &itree{size: len(xs)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right []float64
	for _, x := range xs {
		if x < split {
			left = append(left, x)
		} else {
			right = append(right, x)
		}
	}
	return &itree{
		split: split,
		size:  len(xs),
		left:  grow(rng, left, depth+1, maxDepth),
		right: grow(rng, right, depth+1, maxDepth),
	}
}

func (t *itree) pathLength(x float64, depth int) float64 {
	if t.left == nil {
		return float64(depth) + averagePathLength(t.size)
	}
	if x < t.split {
		return t.left.pathLength(x, depth+1)
	}
	return t.right.pathLength(x, depth+1)
}

// averagePathLength is the expected path length of an unsuccessful search in
// a binary search tree of n nodes.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}

// percentile uses linear interpolation between closest ranks.
func percentile(xs []float64, p float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	if len(s) == 1 {
		return s[0]
	}
	rank := p / 100 * float64(len(s)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	return s[lo] + (s[hi]-s[lo])*(rank-float64(lo))
}
