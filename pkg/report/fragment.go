package report

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrMalformed reports a fragment with no parseable report object.
var ErrMalformed = errors.New("malformed report fragment")

// Entry is one test result kept for a merged bundle.
type Entry struct {
	JSON   string   // entry object, paths already rewritten
	Images []string // referenced files, resolved to filesystem paths
}

// parseFragment extracts the report object from a report({...}); wrapper.
func parseFragment(data []byte) (gjson.Result, error) {
	s := string(data)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return gjson.Result{}, ErrMalformed
	}
	body := s[start : end+1]
	if !gjson.Valid(body) {
		return gjson.Result{}, ErrMalformed
	}
	tests := gjson.Get(body, "tests")
	if !tests.IsArray() {
		return gjson.Result{}, fmt.Errorf("%w: no tests array", ErrMalformed)
	}
	return gjson.Parse(body), nil
}

// failedEntries returns the failing tests of a fragment read from srcDir,
// with every relative path rewritten to resolve from outDir.
func failedEntries(data []byte, srcDir, outDir string) ([]Entry, error) {
	doc, err := parseFragment(data)
	if err != nil {
		return nil, err
	}
	var out []Entry
	var rerr error
	doc.Get("tests").ForEach(func(_, test gjson.Result) bool {
		if test.Get("status").String() != "fail" {
			return true
		}
		e, err := relocate(test.Raw, srcDir, outDir)
		if err != nil {
			rerr = err
			return false
		}
		out = append(out, e)
		return true
	})
	if rerr != nil {
		return nil, rerr
	}
	return out, nil
}

// relocate rewrites every "../" string in raw so it points at the same
// file from outDir as it did from srcDir.
func relocate(raw, srcDir, outDir string) (Entry, error) {
	e := Entry{JSON: raw}
	var err error
	walkStrings(gjson.Parse(raw), "", func(p, value string) bool {
		if !strings.HasPrefix(value, "../") {
			return true
		}
		target := filepath.Join(srcDir, filepath.FromSlash(value))
		rel, rerr := filepath.Rel(outDir, target)
		if rerr != nil {
			err = fmt.Errorf("rewrite %s: %w", value, rerr)
			return false
		}
		e.JSON, err = sjson.Set(e.JSON, p, filepath.ToSlash(rel))
		if err != nil {
			err = fmt.Errorf("rewrite %s: %w", p, err)
			return false
		}
		e.Images = append(e.Images, target)
		return true
	})
	return e, err
}

// referencedFiles resolves every "../" string of raw against dir.
func referencedFiles(raw, dir string) []string {
	var files []string
	walkStrings(gjson.Parse(raw), "", func(_, value string) bool {
		if strings.HasPrefix(value, "../") {
			files = append(files, filepath.Join(dir, filepath.FromSlash(value)))
		}
		return true
	})
	return files
}

// walkStrings calls fn with the sjson path of every string leaf under v.
func walkStrings(v gjson.Result, prefix string, fn func(path, value string) bool) bool {
	switch {
	case v.IsObject():
		ok := true
		v.ForEach(func(key, val gjson.Result) bool {
			ok = walkStrings(val, join(prefix, escapePath(key.String())), fn)
			return ok
		})
		return ok
	case v.IsArray():
		ok := true
		i := 0
		v.ForEach(func(_, val gjson.Result) bool {
			ok = walkStrings(val, join(prefix, strconv.Itoa(i)), fn)
			i++
			return ok
		})
		return ok
	case v.Type == gjson.String:
		return fn(prefix, v.String())
	}
	return true
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	".", `\.`,
	"*", `\*`,
	"?", `\?`,
	"|", `\|`,
	"#", `\#`,
	"@", `\@`,
	":", `\:`,
)

func escapePath(key string) string { return pathEscaper.Replace(key) }
