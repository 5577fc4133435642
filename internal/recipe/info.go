package recipe

import (
	"bufio"
	"os"
	"strings"
)

// listKeys is the fixed set of .info keys that are space-separated lists
// rather than scalar strings (spec §3).
var listKeys = map[string]bool{
	"REQUIRES":         true,
	"DOWNLOAD":         true,
	"DOWNLOAD_x86_64":  true,
	"MD5SUM":           true,
	"MD5SUM_x86_64":    true,
}

// Value is one .info field: either a scalar string or a list of tokens,
// selected by the fixed key set in listKeys.
type Value struct {
	IsList bool
	Scalar string
	List   []string
}

// Info is a parsed .info file: KEY -> Value.
type Info map[string]Value

// Scalar returns the named scalar value, or "" if absent.
func (in Info) Scalar(key string) string {
	return in[key].Scalar
}

// List returns the named list value, or nil if absent.
func (in Info) List(key string) []string {
	return in[key].List
}

// parseInfo parses the line-oriented KEY=VALUE format described in spec
// §3: backslash line continuation, double-quoted scalar and list values,
// and a fixed set of space-separated list keys. It does not use an INI
// library — the quoting and continuation rules here are specific enough
// (and small enough) that a dedicated scanner is clearer than bolting
// them onto a general-purpose config parser.
func parseInfo(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	logical, err := joinContinuations(f)
	if err != nil {
		return nil, err
	}

	out := make(Info)
	for _, line := range logical {
		line = strings.TrimRight(line, "\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := splitAssignment(line)
		if !ok {
			return nil, &MalformedInfoError{Path: path, Err: &assignmentError{line: line}}
		}
		value = strings.Trim(value, `"`)
		if listKeys[key] {
			var tokens []string
			if value != "" {
				tokens = strings.Fields(value)
			}
			out[key] = Value{IsList: true, List: tokens}
		} else {
			out[key] = Value{Scalar: value}
		}
	}
	return out, nil
}

// joinContinuations merges lines ending in a backslash (before the
// newline) with the line that follows, mirroring how the original
// afterpkg.py strips the trailing "\\\n" before handing the result to
// ConfigParser.
func joinContinuations(f *os.File) ([]string, error) {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var logical []string
	var pending strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasSuffix(line, `\`) {
			pending.WriteString(strings.TrimSuffix(line, `\`))
			continue
		}
		pending.WriteString(line)
		logical = append(logical, pending.String())
		pending.Reset()
	}
	if pending.Len() > 0 {
		logical = append(logical, pending.String())
	}
	return logical, scanner.Err()
}

func splitAssignment(line string) (key, value string, ok bool) {
	idx := strings.IndexByte(line, '=')
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", false
	}
	value = strings.TrimSpace(line[idx+1:])
	return key, value, true
}

type assignmentError struct{ line string }

func (e *assignmentError) Error() string {
	return "line is not a KEY=VALUE assignment: " + e.line
}
