// Package worker implements the per-slot build pipeline (spec §4.6): each
// call to Worker.Build drives one package through recipe materialisation,
// source fetch, composite-script assembly, the build itself, and
// installation, emitting tagged lines to the Console Multiplexer as it
// goes.
package worker

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/orcaman/writerseeker"
	"golang.org/x/xerrors"

	"github.com/bifferos/afterpkg/internal/console"
	"github.com/bifferos/afterpkg/internal/lock"
	"github.com/bifferos/afterpkg/internal/oracle"
	"github.com/bifferos/afterpkg/internal/recipe"
	"github.com/bifferos/afterpkg/internal/remote"
	"github.com/bifferos/afterpkg/internal/resolve"
	"github.com/bifferos/afterpkg/internal/scripts"
)

// ArtifactMissingError reports that the post-build glob for a built
// package did not find exactly one match (spec §4.6 step 8 / Open
// Question #1: "treated as Failure, no tie-break").
type ArtifactMissingError struct {
	Name    string
	Pattern string
	Matches []string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("artifact glob %s for %s matched %d files (want exactly 1): %v",
		e.Pattern, e.Name, len(e.Matches), e.Matches)
}

// DownloadMismatchError reports that a source file's checksum still didn't
// match after wget exited 0 (spec §7: "checksum still wrong after a
// successful fetch. Fatal for that job ⇒ Failure"), e.g. a captive-portal
// page, a truncated transfer, or a stale mirror.
type DownloadMismatchError struct {
	URL  string
	Path string
	Want string
	Got  string
}

func (e *DownloadMismatchError) Error() string {
	return fmt.Sprintf("%s: checksum mismatch after fetching %s: want %s, got %s",
		e.Path, e.URL, e.Want, e.Got)
}

// Options mirrors the subset of spec §6 flags that alter worker
// behaviour.
type Options struct {
	PipInstall    bool // §6 pipinstall
	OnlyDownload  bool // §6 onlydownload
	DryRun        bool // §6 donothing
	GetInParallel bool // §6 getinparallel
}

// Worker drives one build-pipeline invocation per job. A single Worker
// value is shared across all slots; per-slot state (the bots/<NN>
// directory reset) is lazily initialised on each slot's first job.
type Worker struct {
	BotsRoot      string
	DownloadsRoot string
	Index         *recipe.Index
	Scripts       *scripts.Index
	Oracle        *oracle.Oracle
	Resolver      *resolve.Resolver
	Installer     *lock.Lock
	Download      *lock.Lock
	Shim          *remote.Shim
	Console       chan *console.Line
	Opts          Options

	jobSeq    int64
	slotMu    sync.Mutex
	slotReady map[int]bool
}

// New constructs a Worker ready to be handed to scheduler.Scheduler.Build.
func New(botsRoot, downloadsRoot string, idx *recipe.Index, scr *scripts.Index, oc *oracle.Oracle, rs *resolve.Resolver, installer, download *lock.Lock, shim *remote.Shim, console chan *console.Line, opts Options) *Worker {
	return &Worker{
		BotsRoot:      botsRoot,
		DownloadsRoot: downloadsRoot,
		Index:         idx,
		Scripts:       scr,
		Oracle:        oc,
		Resolver:      rs,
		Installer:     installer,
		Download:      download,
		Shim:          shim,
		Console:       console,
		Opts:          opts,
		slotReady:     make(map[int]bool),
	}
}

// Build implements scheduler.Build: one complete run of spec §4.6's
// 8-step pipeline for name on slot.
func (w *Worker) Build(ctx context.Context, name string, slot int) error {
	botDir, err := w.ensureSlot(slot)
	if err != nil {
		return err
	}

	if w.Opts.PipInstall && w.Index.IsLanguagePackage(name) {
		if mapped, ok := w.Oracle.MapToIndexName(name); ok {
			return w.pipInstall(name, mapped, slot)
		}
	}

	working := filepath.Join(botDir, fmt.Sprintf("%d_%s", atomic.AddInt64(&w.jobSeq, 1), name))
	if err := w.materialise(name, working); err != nil {
		return err
	}

	if err := w.fetchSources(name, working); err != nil {
		return err
	}
	if w.Opts.OnlyDownload {
		return nil
	}

	scriptPath, err := w.assembleScript(name, working, slot)
	if err != nil {
		return err
	}

	if err := w.runBuild(name, working, scriptPath, slot); err != nil {
		return err
	}

	return w.install(name, slot)
}

// ensureSlot wipes and recreates bots/<NN> the first time slot is used,
// matching spec §4.6: "Each worker owns a per-slot working root
// bots/<NN> which is removed and recreated at worker start."
func (w *Worker) ensureSlot(slot int) (string, error) {
	botDir := filepath.Join(w.BotsRoot, fmt.Sprintf("%02d", slot))

	w.slotMu.Lock()
	defer w.slotMu.Unlock()
	if w.slotReady[slot] {
		return botDir, nil
	}
	if w.Opts.DryRun {
		w.slotReady[slot] = true
		return botDir, nil
	}
	if err := os.RemoveAll(botDir); err != nil {
		return "", err
	}
	if err := os.MkdirAll(botDir, 0o755); err != nil {
		return "", err
	}
	w.slotReady[slot] = true
	return botDir, nil
}

func (w *Worker) emit(slot int, pkg, format string, args ...interface{}) {
	if w.Console == nil {
		return
	}
	text := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	w.Console <- &console.Line{Text: []byte(text), Package: pkg, Slot: slot}
}

func (w *Worker) pipInstall(name, mapped string, slot int) error {
	cmd := fmt.Sprintf("pip%s install %s", oracle.PipVersion(name), mapped)
	w.emit(slot, name, "%s", cmd)

	w.Installer.Lock()
	defer w.Installer.Unlock()
	if w.Opts.DryRun {
		return nil
	}
	out, err := w.Shim.Run(cmd)
	w.emit(slot, name, "%s", out)
	return err
}

func (w *Worker) materialise(name, working string) error {
	dir, err := w.Index.Lookup(name)
	if err != nil {
		return err
	}
	if w.Opts.DryRun {
		return nil
	}
	if err := os.MkdirAll(working, 0o755); err != nil {
		return err
	}
	return w.Shim.Send(dir, working)
}

func (w *Worker) fetchSources(name, working string) error {
	info, err := w.Index.ReadInfo(name)
	if err != nil {
		return err
	}

	urls := info.List("DOWNLOAD_x86_64")
	sums := info.List("MD5SUM_x86_64")
	if len(urls) == 0 {
		urls = info.List("DOWNLOAD")
		sums = info.List("MD5SUM")
	}

	category := w.Index.Category(name)
	for i, url := range urls {
		checksum := ""
		if i < len(sums) {
			checksum = sums[i]
		}
		filename := filepath.Base(url)
		localPath := filepath.Join(w.DownloadsRoot, category, name, filename)

		if err := w.fetchOne(url, localPath, checksum); err != nil {
			return err
		}

		if w.Opts.DryRun {
			continue
		}
		if err := os.MkdirAll(working, 0o755); err != nil {
			return err
		}
		if err := copyFile(localPath, filepath.Join(working, filename)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) fetchOne(url, localPath, checksum string) error {
	current, _ := fileMD5(localPath)
	if current == checksum && checksum != "" {
		return nil
	}

	cmd := fmt.Sprintf("wget -O %s %s", shQuote(localPath), shQuote(url))

	downloadLock := w.Download
	if w.Opts.GetInParallel {
		downloadLock = lock.NewNoOp()
	}
	downloadLock.Lock()
	defer downloadLock.Unlock()

	if w.Opts.DryRun {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	if _, err := w.Shim.Run(cmd); err != nil {
		return err
	}

	if checksum == "" {
		return nil
	}
	got, err := fileMD5(localPath)
	if err != nil {
		return err
	}
	if got != checksum {
		return &DownloadMismatchError{URL: url, Path: localPath, Want: checksum, Got: got}
	}
	return nil
}

func fileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// assembleScript implements spec §4.6 step 6: before.sh, every
// transitive requires.sh (from a second resolve pass with
// skipSatisfied=false, per Open Question #4), the recipe's own
// .SlackBuild, then after.sh.
func (w *Worker) assembleScript(name, working string, slot int) (string, error) {
	var ws writerseeker.WriterSeeker
	fmt.Fprint(&ws, "#!/bin/sh\n")

	if before := w.Scripts.Get(scripts.Before, name); before != "" {
		w.emit(slot, name, "including %s", before)
		if err := appendFile(&ws, before); err != nil {
			return "", err
		}
	}

	closure, err := w.Resolver.Resolve([]string{name}, false)
	if err != nil {
		return "", err
	}
	for _, dep := range closure {
		if dep == name {
			continue
		}
		if req := w.Scripts.Get(scripts.Requires, dep); req != "" {
			w.emit(slot, name, "including %s", req)
			if err := appendFile(&ws, req); err != nil {
				return "", err
			}
		}
	}

	slackbuild := filepath.Join(working, name+".SlackBuild")
	if err := appendFile(&ws, slackbuild); err != nil {
		return "", err
	}

	if after := w.Scripts.Get(scripts.After, name); after != "" {
		w.emit(slot, name, "including %s", after)
		if err := appendFile(&ws, after); err != nil {
			return "", err
		}
	}

	scriptPath := filepath.Join(working, "afterpkg-build.sh")
	if w.Opts.DryRun {
		return scriptPath, nil
	}
	contents, err := io.ReadAll(ws.Reader())
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(scriptPath, contents, 0o755); err != nil {
		return "", err
	}
	return scriptPath, nil
}

func appendFile(w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	_, err = w.Write(data)
	return err
}

func (w *Worker) runBuild(name, working, scriptPath string, slot int) error {
	cmd := fmt.Sprintf("cd %s && ./%s", shQuote(working), shQuote(filepath.Base(scriptPath)))
	w.emit(slot, name, "%s", cmd)
	if w.Opts.DryRun {
		return nil
	}

	out, err := w.Shim.Run(cmd)
	for _, line := range bytes.Split(out, []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		w.emit(slot, name, "%s", line)
	}
	if err != nil {
		return xerrors.Errorf("building %s: %w", name, err)
	}
	return nil
}

func (w *Worker) install(name string, slot int) error {
	info, err := w.Index.ReadInfo(name)
	if err != nil {
		return err
	}
	pattern := filepath.Join("/tmp", fmt.Sprintf("%s-%s-*", name, info.Scalar("VERSION")))

	w.Installer.Lock()
	defer w.Installer.Unlock()

	var artifact string
	if w.Opts.DryRun {
		artifact = fmt.Sprintf("/tmp/%s-%s-...tgz", name, info.Scalar("VERSION"))
	} else {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return err
		}
		if len(matches) != 1 {
			return &ArtifactMissingError{Name: name, Pattern: pattern, Matches: matches}
		}
		artifact = matches[0]
	}

	cmd := fmt.Sprintf("installpkg %s", shQuote(artifact))
	w.emit(slot, name, "%s", cmd)
	if w.Opts.DryRun {
		return nil
	}
	out, err := w.Shim.Run(cmd)
	w.emit(slot, name, "%s", out)
	return err
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
