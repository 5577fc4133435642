package oracle

import (
	"bufio"
	"encoding/json"
	"log"
	"os"
	"strings"

	"github.com/google/renameio"
	"github.com/klauspost/compress/gzip"
)

// Universe answers "what package names exist in the ambient language
// index". It is isolated behind an interface (spec §9, Design Notes:
// "Implementations should isolate this behind an interface so tests can
// inject a deterministic universe") so the Oracle can be tested without
// ever touching the network.
type Universe interface {
	Names() (map[string]bool, error)
}

// pypiUniverse fetches the PyPI package-name list once via the
// list_packages XML-RPC call (spec §6: "An ambient package index is
// queried via a remote procedure call (list_packages)") and persists it
// to cacheFile, gzip-compressed, across runs. run is the Remote
// Execution Shim's command runner (so the fetch transparently happens on
// whichever host the orchestrator targets); the call itself shells out
// to python3, mirroring the corpus's own approach (other_examples'
// python backends run small embedded scripts via the interpreter rather
// than reimplement XML-RPC) to talking to PyPI.
type pypiUniverse struct {
	cacheFile string
	run       func(cmd string) ([]byte, error)
}

// NewPyPIUniverse returns the production Universe implementation.
func NewPyPIUniverse(cacheFile string, run func(cmd string) ([]byte, error)) Universe {
	return &pypiUniverse{cacheFile: cacheFile, run: run}
}

const listPackagesScript = `
import json, sys
try:
    from xmlrpc import client as xmlrpc
except ImportError:
    import xmlrpclib as xmlrpc
pypi = xmlrpc.ServerProxy("https://pypi.python.org/pypi")
json.dump(pypi.list_packages(), sys.stdout)
`

func (u *pypiUniverse) Names() (map[string]bool, error) {
	if names, ok := u.readCache(); ok {
		return names, nil
	}

	log.Printf("oracle: downloading package list from pypi")
	out, err := u.run("python3 -c " + shellQuote(listPackagesScript))
	if err != nil {
		// Best-effort per spec §9: the index snapshot fetch is one of
		// the subprocess calls the original ignores the return code
		// of. Treat a failed snapshot as an empty universe rather than
		// a fatal error.
		log.Printf("oracle: pypi snapshot fetch failed, treating universe as empty: %v", err)
		return map[string]bool{}, nil
	}

	var list []string
	if err := json.Unmarshal(out, &list); err != nil {
		log.Printf("oracle: pypi snapshot response unparsable, treating universe as empty: %v", err)
		return map[string]bool{}, nil
	}

	names := make(map[string]bool, len(list))
	for _, n := range list {
		names[n] = true
	}
	u.writeCache(list)
	return names, nil
}

func (u *pypiUniverse) readCache() (map[string]bool, bool) {
	f, err := os.Open(u.cacheFile)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	zr, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		return nil, false
	}
	defer zr.Close()

	var list []string
	if err := json.NewDecoder(zr).Decode(&list); err != nil {
		return nil, false
	}
	names := make(map[string]bool, len(list))
	for _, n := range list {
		names[n] = true
	}
	return names, true
}

func (u *pypiUniverse) writeCache(list []string) {
	t, err := renameio.TempFile("", u.cacheFile)
	if err != nil {
		log.Printf("oracle: cannot cache pypi snapshot: %v", err)
		return
	}
	defer t.Cleanup()

	zw := gzip.NewWriter(t)
	if err := json.NewEncoder(zw).Encode(list); err != nil {
		log.Printf("oracle: cannot encode pypi snapshot: %v", err)
		return
	}
	if err := zw.Close(); err != nil {
		log.Printf("oracle: cannot flush pypi snapshot: %v", err)
		return
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		log.Printf("oracle: cannot persist pypi snapshot: %v", err)
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
