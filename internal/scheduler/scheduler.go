// Package scheduler implements the parallel build Scheduler (spec §4.5):
// a fixed-size worker pool that dispatches resolved packages as soon as
// their in-set dependencies have built, publishes progress to a Status
// Sink each wave, and aborts dispatching further work (while draining
// in-flight jobs to completion) on the first build failure.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Requires returns name's dependencies, exactly as recipe.Index.Requires
// does. It is injected rather than imported directly so the Scheduler can
// be driven by a fake dependency graph in tests (mirrors the Satisfied
// interface seam in internal/resolve).
type Requires func(name string) ([]string, error)

// Build runs the build pipeline for name on worker slot. It is
// implemented by internal/worker in production.
type Build func(ctx context.Context, name string, slot int) error

// Sink publishes the set of still-pending and already-built package
// names after each wave (spec §4.8, Status Sink). Publish failures are
// logged by the Sink implementation itself and never abort the build.
type Sink interface {
	Publish(pending, built []string) error
}

// Scheduler holds the fixed configuration for one build run.
type Scheduler struct {
	NumWorkers int
	Requires   Requires
	Build      Build
	Sink       Sink // optional; nil disables progress publication
}

type result struct {
	name string
	err  error
}

// FailedPackageError reports the names of packages whose build failed.
// Once a build fails no further package is dispatched, so Skipped lists
// every package that never completed: the failed package's dependents,
// and also any other package still waiting when the run aborted.
type FailedPackageError struct {
	Failed  []string
	Skipped []string
}

func (e *FailedPackageError) Error() string {
	return fmt.Sprintf("build failed for: %s (not built after the failure: %s)",
		strings.Join(e.Failed, ", "), strings.Join(e.Skipped, ", "))
}

// Run builds every name in names, respecting in-set dependency order,
// using up to NumWorkers concurrent slots. Slots are numbered
// [0, NumWorkers) and handed to Build for prefixing and colour
// selection (spec §4.7).
func (s *Scheduler) Run(ctx context.Context, names []string) error {
	total := len(names)
	if total == 0 {
		return nil
	}

	inSet := make(map[string]bool, total)
	for _, n := range names {
		inSet[n] = true
	}

	remaining := make(map[string]map[string]bool, total)
	dependents := make(map[string][]string, total)
	for _, n := range names {
		deps, err := s.Requires(n)
		if err != nil {
			return err
		}
		unbuilt := make(map[string]bool)
		for _, d := range deps {
			if inSet[d] && d != n {
				unbuilt[d] = true
				dependents[d] = append(dependents[d], n)
			}
		}
		remaining[n] = unbuilt
	}

	jobs := make(chan string, total)
	done := make(chan result, total)

	g, ctx := errgroup.WithContext(ctx)
	for slot := 0; slot < s.NumWorkers; slot++ {
		slot := slot
		g.Go(func() error {
			for name := range jobs {
				done <- result{name: name, err: s.Build(ctx, name, slot)}
			}
			return nil
		})
	}

	built := make(map[string]bool, total)
	failed := make(map[string]bool)
	pending := make(map[string]bool, total)
	for _, n := range names {
		pending[n] = true
	}

	dispatched := 0
	aborted := false

	dispatch := func(n string) {
		dispatched++
		jobs <- n
	}

	for _, n := range names {
		if len(remaining[n]) == 0 {
			dispatch(n)
		}
	}

	completed := 0
	for completed < dispatched {
		r := <-done
		completed++
		delete(pending, r.name)

		if r.err != nil {
			failed[r.name] = true
			aborted = true
		} else {
			built[r.name] = true
			if !aborted {
				for _, dep := range dependents[r.name] {
					delete(remaining[dep], r.name)
					if len(remaining[dep]) == 0 {
						dispatch(dep)
					}
				}
			}
		}

		if s.Sink != nil {
			s.Sink.Publish(sortedKeys(pending), sortedKeys(built))
		}
	}
	close(jobs)
	if err := g.Wait(); err != nil {
		return err
	}

	if len(failed) > 0 {
		skipped := make([]string, 0, len(pending))
		for n := range pending {
			skipped = append(skipped, n)
		}
		sort.Strings(skipped)
		return &FailedPackageError{Failed: sortedKeys(failed), Skipped: skipped}
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
