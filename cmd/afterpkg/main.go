// Command afterpkg resolves and builds SlackBuild-style source package
// recipes in dependency order, using a fixed-size worker pool (spec §6).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/bifferos/afterpkg/internal/build"
	"github.com/bifferos/afterpkg/internal/console"
	"github.com/bifferos/afterpkg/internal/env"
	"github.com/bifferos/afterpkg/internal/oninterrupt"
	"github.com/bifferos/afterpkg/internal/scripts"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("afterpkg: %v", err)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("afterpkg", flag.ExitOnError)

	numThreads := fs.Int("numthreads", 1, "number of parallel build workers")
	getInParallel := fs.Bool("getinparallel", false, "allow source downloads to overlap")
	pipInstall := fs.Bool("pipinstall", false, "prefer installing python packages from the index over building them")
	onlyDownload := fs.Bool("onlydownload", false, "fetch sources and stop")
	doNothing := fs.Bool("donothing", false, "print the pip, build and install commands a real run would issue instead of executing them (source downloads are skipped without being printed)")
	noVirtual := fs.Bool("novirtual", false, "do not treat language-managed installs as satisfying a dependency")
	noPip2 := fs.Bool("nopip2", false, "ignore the pip package list when checking if a dependency is satisfied")
	noPip3 := fs.Bool("nopip3", false, "ignore the pip3 package list when checking if a dependency is satisfied")
	noBefore := fs.Bool("before", false, "suppress before.sh hook scripts")
	noAfter := fs.Bool("after", false, "suppress after.sh hook scripts")
	noRequires := fs.Bool("requires", false, "suppress requires.sh hook scripts")
	noColour := fs.Bool("nocolour", false, "disable ANSI colour in console output")
	queue := fs.Bool("queue", false, "print the resolved build order and exit, without building anything")
	queueFile := fs.String("queue-file", "", "also write the resolved build order to PATH, one name per line")
	remoteHost := fs.String("remotehost", "", "build on a remote host over ssh instead of locally")
	slackbuildsRoot := fs.String("slackbuilds", env.SlackbuildsDir(), "recipe tree root")
	scriptsRoot := fs.String("scripts", "", "hook-script tree root (defaults based on how afterpkg was invoked)")
	printEnv := fs.Bool("print-env", false, "print the resolved dotdir paths and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *printEnv {
		fmt.Printf("AFTERPKG_ROOT=%s\nslackbuilds=%s\nscripts=%s\ndownloads=%s\nbots=%s\n",
			env.Root, env.SlackbuildsDir(), env.ScriptsDir(), env.DownloadsDir(), env.BotsDir())
		return nil
	}

	targets, err := targetNames(fs.Args())
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no target packages given")
	}

	root := *scriptsRoot
	if root == "" {
		exe, err := os.Executable()
		if err == nil {
			root = scripts.DefaultRoot(filepath.Dir(exe), env.ScriptsDir())
		} else {
			root = env.ScriptsDir()
		}
	}

	colourDefault := !*noColour && console.AutoColour(os.Stdout)

	// Worker slot directories under bots/ are left behind on SIGINT so an
	// operator can inspect a partially-built package; the handler only
	// logs where they are and cleans nothing up.
	oninterrupt.Register(func() {
		log.Printf("afterpkg: interrupted, bot working directories left in place under %s", env.BotsDir())
	})

	cfg := build.Config{
		SlackbuildsRoot: *slackbuildsRoot,
		ScriptsRoot:     root,
		DownloadsRoot:   env.DownloadsDir(),
		BotsRoot:        env.BotsDir(),
		PyPICacheFile:   env.PyPICacheFile(),
		ProgressDir:     env.ProgressDir(),
		NativeInstalled: env.InstalledPackagesDir,

		NumThreads:    *numThreads,
		GetInParallel: *getInParallel,
		PipInstall:    *pipInstall,
		OnlyDownload:  *onlyDownload,
		DryRun:        *doNothing,
		IgnoreVirtual: *noVirtual,
		IgnorePip2:    *noPip2,
		IgnorePip3:    *noPip3,
		SuppressBefore:   *noBefore,
		SuppressAfter:    *noAfter,
		SuppressRequires: *noRequires,
		NoColour:      !colourDefault,
		QueueOnly:     *queue,
		QueueFile:     *queueFile,
		RemoteHost:    *remoteHost,

		Targets: targets,
		Stdout:  os.Stdout,
	}

	return build.Run(cfg)
}

// targetNames implements spec §6's positional-argument contract: one or
// more target names, or a single "-" meaning read names from stdin (one
// per line, "#" introduces a comment).
func targetNames(args []string) ([]string, error) {
	if len(args) == 1 && args[0] == "-" {
		var names []string
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			names = append(names, line)
		}
		return names, scanner.Err()
	}
	return args, nil
}
