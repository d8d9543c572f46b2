// Package browser enumerates the headless browser engines that BackstopJS
// can render scenarios with, and resolves operator text to engines.
package browser

import (
	"errors"
	"fmt"

	"golang.org/x/text/cases"
)

// Engine is a supported browser engine. The zero value is not valid.
type Engine string

const (
	Chromium Engine = "chromium"
	Firefox  Engine = "firefox"
	WebKit   Engine = "webkit"
)

// All lists every supported engine in display order.
var All = []Engine{Chromium, Firefox, WebKit}

// ErrUnknown is returned by Parse for text that names no engine.
var ErrUnknown = errors.New("unknown browser engine")

var displayNames = map[Engine]string{
	Chromium: "Chromium",
	Firefox:  "Firefox",
	WebKit:   "WebKit",
}

var abbreviations = map[string]Engine{
	"c": Chromium,
	"f": Firefox,
	"w": WebKit,
}

// foldKey folds s for case-insensitive comparison. Casers are stateful,
// so each call gets its own.
func foldKey(s string) string { return cases.Fold().String(s) }

// DisplayName returns the human label used in report headers.
func (e Engine) DisplayName() string {
	if name, ok := displayNames[e]; ok {
		return name
	}
	return string(e)
}

// Parse resolves a full engine name or its single-letter abbreviation,
// ignoring case.
func Parse(s string) (Engine, error) {
	key := foldKey(s)
	for _, e := range All {
		if key == foldKey(string(e)) {
			return e, nil
		}
	}
	if e, ok := abbreviations[key]; ok {
		return e, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, s)
}

// ResolveList resolves every recognized entry of args, dropping duplicates
// and unrecognized text. When nothing is recognized it returns All.
func ResolveList(args []string) []Engine {
	seen := make(map[Engine]bool)
	var out []Engine
	for _, a := range args {
		e, err := Parse(a)
		if err != nil || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	if len(out) == 0 {
		return append([]Engine(nil), All...)
	}
	return out
}
