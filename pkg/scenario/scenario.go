// Package scenario defines the visual-regression scenario records loaded
// from YAML and the ordered catalog the run engine walks.
package scenario

import (
	"regexp"
	"strconv"
	"strings"
)

// File is the top-level YAML document.
type File struct {
	URLs []Scenario `yaml:"urls" json:"urls" jsonschema:"required,minItems=1"`
}

// Scenario is one named URL pair rendered at a set of viewports.
type Scenario struct {
	Name         string   `yaml:"name"                   json:"name"                   jsonschema:"required,minLength=1"`
	PrimaryURL   string   `yaml:"url1"                   json:"url1"                   jsonschema:"required"`
	ReferenceURL string   `yaml:"url2,omitempty"         json:"url2,omitempty"`
	ScreenSizes  []string `yaml:"screen_sizes"           json:"screen_sizes,omitempty" jsonschema:"description=WxH viewports; missing or malformed sizes fall back to the default"`
	DelaySeconds float64  `yaml:"delay,omitempty"        json:"delay,omitempty"        jsonschema:"minimum=0"`
}

// Viewport is a parsed screen size.
type Viewport struct {
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Fallback viewport for screen sizes that do not match <width>x<height>.
const (
	DefaultWidth  = 1920
	DefaultHeight = 1080
)

var (
	screenSizeRe = regexp.MustCompile(`(?i)^([1-9][0-9]*)x([1-9][0-9]*)$`)
	unsafePathRe = regexp.MustCompile(`[\s/\\:*?"<>|\x00-\x1f\x7f]+`)
)

// PathName is the scenario name as a single filesystem path component.
// Runs of whitespace, separators and other unsafe characters become "_",
// and names made only of dots are replaced so they never resolve to "."
// or "..".
func (s Scenario) PathName() string {
	name := unsafePathRe.ReplaceAllString(s.Name, "_")
	if strings.Trim(name, ".") == "" {
		return strings.Repeat("_", max(len(name), 1))
	}
	return name
}

// DelayMillis converts the configured delay to milliseconds.
func (s Scenario) DelayMillis() int {
	if s.DelaySeconds <= 0 {
		return 0
	}
	return int(s.DelaySeconds * 1000)
}

// Viewports parses every screen size, keeping the input text as label.
func (s Scenario) Viewports() []Viewport {
	out := make([]Viewport, 0, len(s.ScreenSizes))
	for _, size := range s.ScreenSizes {
		out = append(out, ParseViewport(size))
	}
	return out
}

// ParseViewport parses "<width>x<height>". Malformed input yields the
// default 1920x1080 viewport labelled with the input text.
func ParseViewport(size string) Viewport {
	vp := Viewport{Label: size, Width: DefaultWidth, Height: DefaultHeight}
	m := screenSizeRe.FindStringSubmatch(strings.TrimSpace(size))
	if m == nil {
		return vp
	}
	w, errW := strconv.Atoi(m[1])
	h, errH := strconv.Atoi(m[2])
	if errW != nil || errH != nil {
		return vp
	}
	vp.Width, vp.Height = w, h
	return vp
}

// ValidScreenSize reports whether size parses without falling back.
func ValidScreenSize(size string) bool {
	return screenSizeRe.MatchString(strings.TrimSpace(size))
}
