package replay

import (
	"context"
	"sort"
	"sync"

	"github.com/roach88/apidiff/internal/compare"
	"github.com/roach88/apidiff/internal/testcase"
)

// Runner replays path groups against both targets with a bounded worker
// pool and assembles comparison results.
type Runner struct {
	Left, Right Target
	Ignores     compare.Ignores
	DiffOpts    compare.DiffOptions
	Opts        Options

	// client can be replaced in tests.
	client *Client
}

// NewRunner wires a runner with a fresh client.
func NewRunner(left, right Target, ignores compare.Ignores, diffOpts compare.DiffOptions, opts Options) *Runner {
	return &Runner{
		Left:     left,
		Right:    right,
		Ignores:  ignores,
		DiffOpts: diffOpts,
		Opts:     opts,
		client:   NewClient(opts),
	}
}

type job struct {
	index int
	sub   testcase.SubCase
}

type done struct {
	index  int
	result compare.ComparisonResult
}

// Run replays every subcase and returns results in subcase order.
//
// Cancellation is cooperative: in-flight subcases finish, queued ones
// are abandoned, and every result completed before the cancellation is
// still returned alongside ctx.Err(). Partial results are valid output.
func (r *Runner) Run(ctx context.Context, groups []testcase.PathGroup) ([]compare.ComparisonResult, error) {
	subs := Flatten(groups)
	if len(subs) == 0 {
		return nil, nil
	}

	workers := r.Opts.Concurrency
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan job)
	results := make(chan done, len(subs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- done{index: j.index, result: r.runOne(ctx, j.sub)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, sub := range subs {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{index: i, sub: sub}:
			}
		}
	}()

	wg.Wait()
	close(results)

	completed := make([]done, 0, len(subs))
	for d := range results {
		completed = append(completed, d)
	}
	sort.Slice(completed, func(i, j int) bool { return completed[i].index < completed[j].index })

	out := make([]compare.ComparisonResult, 0, len(completed))
	for _, d := range completed {
		out = append(out, d.result)
	}
	return out, ctx.Err()
}

// runOne fires both sides concurrently and assembles the comparison.
func (r *Runner) runOne(ctx context.Context, sub testcase.SubCase) compare.ComparisonResult {
	var left, right compare.Outcome
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		left = r.client.Do(ctx, r.Left, sub)
	}()
	go func() {
		defer wg.Done()
		right = r.client.Do(ctx, r.Right, sub)
	}()
	wg.Wait()

	return compare.Compare(sub, left, right, r.Ignores, r.DiffOpts)
}

// Flatten returns all subcases across groups in display order.
func Flatten(groups []testcase.PathGroup) []testcase.SubCase {
	var subs []testcase.SubCase
	for _, g := range groups {
		subs = append(subs, g.SubCases...)
	}
	return subs
}
