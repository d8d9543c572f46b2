package backstop

import (
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/artifact"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/browser"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

// Config is the BackstopJS configuration document for a single scenario.
type Config struct {
	ID                string              `json:"id"`
	Viewports         []scenario.Viewport `json:"viewports"`
	Scenarios         []ScenarioConfig    `json:"scenarios"`
	Paths             artifact.Paths      `json:"paths"`
	Report            []string            `json:"report"`
	Engine            string              `json:"engine"`
	EngineOptions     EngineOptions       `json:"engineOptions"`
	AsyncCaptureLimit int                 `json:"asyncCaptureLimit"`
	AsyncCompareLimit int                 `json:"asyncCompareLimit"`
	Debug             bool                `json:"debug"`
	DebugWindow       bool                `json:"debugWindow"`
}

// EngineOptions selects the Playwright browser.
type EngineOptions struct {
	Browser string   `json:"browser"`
	Args    []string `json:"args"`
}

// ScenarioConfig is one entry of Config.Scenarios.
type ScenarioConfig struct {
	Label                 string   `json:"label"`
	CookiePath            string   `json:"cookiePath"`
	URL                   string   `json:"url"`
	ReferenceURL          string   `json:"referenceUrl"`
	ReadyEvent            string   `json:"readyEvent"`
	ReadySelector         string   `json:"readySelector"`
	Delay                 int      `json:"delay"`
	HideSelectors         []string `json:"hideSelectors"`
	RemoveSelectors       []string `json:"removeSelectors"`
	HoverSelector         string   `json:"hoverSelector"`
	ClickSelector         string   `json:"clickSelector"`
	PostInteractionWait   int      `json:"postInteractionWait"`
	Selectors             []string `json:"selectors"`
	SelectorExpansion     bool     `json:"selectorExpansion"`
	Expect                int      `json:"expect"`
	MisMatchThreshold     float64  `json:"misMatchThreshold"`
	RequireSameDimensions bool     `json:"requireSameDimensions"`
}

// NewConfig builds the configuration for s rendered by engine, with every
// artifact directory keyed by {engine}/{scenario}.
func NewConfig(engine browser.Engine, layout artifact.Layout, s scenario.Scenario) Config {
	return Config{
		ID:        s.PathName(),
		Viewports: s.Viewports(),
		Scenarios: []ScenarioConfig{{
			Label:                 s.PathName(),
			URL:                   s.PrimaryURL,
			ReferenceURL:          s.ReferenceURL,
			Delay:                 s.DelayMillis(),
			HideSelectors:         []string{},
			RemoveSelectors:       []string{},
			Selectors:             []string{},
			SelectorExpansion:     true,
			MisMatchThreshold:     0.1,
			RequireSameDimensions: true,
		}},
		Paths:  layout.For(engine, s),
		Report: []string{"browser"},
		Engine: "playwright",
		EngineOptions: EngineOptions{
			Browser: string(engine),
			Args:    []string{"--no-sandbox"},
		},
		AsyncCaptureLimit: 20,
		AsyncCompareLimit: 100,
	}
}
