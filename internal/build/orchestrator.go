// Package build wires the Recipe Index, Local-Install Oracle, Script
// Index, Dependency Resolver, Scheduler, Console Multiplexer and Status
// Sink together into one end-to-end run, mirroring the shape of
// cmd/distri/batch.go's own Ctx.Build: construct every component,
// resolve targets, hand the result to the scheduler, and wait for the
// console to drain before returning.
package build

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/bifferos/afterpkg/internal/console"
	"github.com/bifferos/afterpkg/internal/lock"
	"github.com/bifferos/afterpkg/internal/oracle"
	"github.com/bifferos/afterpkg/internal/recipe"
	"github.com/bifferos/afterpkg/internal/remote"
	"github.com/bifferos/afterpkg/internal/resolve"
	"github.com/bifferos/afterpkg/internal/scheduler"
	"github.com/bifferos/afterpkg/internal/scripts"
	"github.com/bifferos/afterpkg/internal/status"
	"github.com/bifferos/afterpkg/internal/worker"
)

// Config captures every spec §6 flag plus the paths that locate the
// repository on disk.
type Config struct {
	SlackbuildsRoot string
	ScriptsRoot     string
	DownloadsRoot   string
	BotsRoot        string
	PyPICacheFile   string
	ProgressDir     string
	NativeInstalled string // InstalledPackagesDir

	NumThreads    int
	GetInParallel bool
	PipInstall    bool
	OnlyDownload  bool
	DryRun        bool
	IgnoreVirtual bool
	IgnorePip2    bool
	IgnorePip3    bool
	SuppressBefore   bool
	SuppressAfter    bool
	SuppressRequires bool
	NoColour      bool
	QueueOnly     bool
	QueueFile     string
	RemoteHost    string

	Targets []string

	Stdout io.Writer
}

// Run implements the full command surface described in spec §6: resolve
// targets, then either print the queue (queue mode) or drive the
// scheduler to completion.
func Run(cfg Config) error {
	if err := recipe.EnsureRoot(cfg.SlackbuildsRoot, func(cmd string) error {
		_, err := remote.Local().Run(cmd)
		return err
	}); err != nil {
		return fmt.Errorf("ensuring slackbuilds root: %w", err)
	}

	idx, err := recipe.Open(cfg.SlackbuildsRoot)
	if err != nil {
		return fmt.Errorf("opening recipe index: %w", err)
	}
	if err := idx.CheckAcyclic(); err != nil {
		return err
	}

	scr, err := scripts.Open(cfg.ScriptsRoot, scripts.Suppress{
		Before:   cfg.SuppressBefore,
		After:    cfg.SuppressAfter,
		Requires: cfg.SuppressRequires,
	})
	if err != nil {
		return fmt.Errorf("opening script index: %w", err)
	}

	shim := &remote.Shim{Host: cfg.RemoteHost}

	native, err := oracle.NativeInstalled(cfg.NativeInstalled)
	if err != nil {
		log.Printf("build: reading installed-packages directory: %v (treating as empty)", err)
		native = map[string]bool{}
	}
	pip2, _ := pipList(shim, "pip")
	pip3, _ := pipList(shim, "pip3")
	universe, err := oracle.NewPyPIUniverse(cfg.PyPICacheFile, shim.Run).Names()
	if err != nil {
		return err
	}

	oc := oracle.New(idx, oracle.Options{
		IgnoreLanguageManaged: cfg.IgnoreVirtual,
		IgnorePip2:            cfg.IgnorePip2,
		IgnorePip3:            cfg.IgnorePip3,
	}, native, pip2, pip3, universe)

	resolver := resolve.New(idx, oc)
	resolved, err := resolver.Resolve(cfg.Targets, true)
	if err != nil {
		return err
	}

	if cfg.QueueOnly {
		for _, name := range resolved {
			fmt.Fprintln(cfg.Stdout, name)
		}
		if cfg.QueueFile != "" {
			return writeQueueFile(cfg.QueueFile, resolved)
		}
		return nil
	}

	if len(resolved) == 0 {
		return nil
	}

	consoleCh := make(chan *console.Line, 4096)
	mux := console.New(cfg.Stdout, !cfg.NoColour, cfg.NumThreads)
	muxDone := make(chan error, 1)
	go func() { muxDone <- mux.Run(consoleCh) }()

	sink := status.New(cfg.ProgressDir)
	closureResolver := resolve.New(idx, neverSatisfied{}) // skipSatisfied=false pass for script closures

	w := worker.New(cfg.BotsRoot, cfg.DownloadsRoot, idx, scr, oc, closureResolver,
		new(lock.Lock), new(lock.Lock), shim, consoleCh, worker.Options{
			PipInstall:    cfg.PipInstall,
			OnlyDownload:  cfg.OnlyDownload,
			DryRun:        cfg.DryRun,
			GetInParallel: cfg.GetInParallel,
		})

	sched := &scheduler.Scheduler{
		NumWorkers: cfg.NumThreads,
		Requires:   idx.Requires,
		Build:      w.Build,
		Sink:       sink,
	}

	buildErr := sched.Run(context.Background(), resolved)

	consoleCh <- nil
	<-muxDone

	return buildErr
}

// neverSatisfied marks nothing satisfied, so the closure resolver used
// for requires.sh assembly (spec §4.6 step 6) performs a full
// transitive-closure walk rather than skipping installed packages (Open
// Question #4).
type neverSatisfied struct{}

func (neverSatisfied) IsSatisfied(string) bool { return false }

func pipList(shim *remote.Shim, bin string) (map[string]bool, error) {
	out, err := shim.Run(bin + " list --format=freeze 2>/dev/null")
	if err != nil {
		return map[string]bool{}, nil
	}
	names := map[string]bool{}
	for _, line := range strings.Split(string(out), "\n") {
		if name, _, ok := strings.Cut(line, "=="); ok && name != "" {
			names[name] = true
		}
	}
	return names, nil
}

// writeQueueFile writes names in resolved build order, one per line, in
// the format sbopkg-style sqg queue files use (Supplemented feature,
// --queue-file).
func writeQueueFile(path string, names []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, n := range names {
		if _, err := fmt.Fprintln(f, n); err != nil {
			return err
		}
	}
	return nil
}
