package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/runner"
	"github.com/zhumingcheng697/BackstopJS-Test/pkg/scenario"
)

func TestPrinter_Notice(t *testing.T) {
	tests := []struct {
		level runner.Level
		want  string
	}{
		{runner.LevelSuccess, GlyphSuccess + " done"},
		{runner.LevelError, GlyphError + " done"},
		{runner.LevelWarn, GlyphWarn + " done"},
		{runner.LevelInfo, GlyphInfo + " done"},
		{runner.LevelHint, "done"},
		{runner.LevelPrompt, "done"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		NewPrinter(&buf, false).Notice(runner.Notice{Level: tt.level, Text: "done"})
		if got := strings.TrimSpace(buf.String()); got != tt.want {
			t.Errorf("level %d: got %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestPrinter_Debugf(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, false).Debugf("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug output without debug mode: %q", buf.String())
	}
	NewPrinter(&buf, true).Debugf("shown %d", 1)
	if !strings.Contains(buf.String(), "debug: shown 1") {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestScenarioTable(t *testing.T) {
	long := strings.Repeat("Alumni Content ", 10)
	cat := scenario.NewCatalog([]scenario.Scenario{
		{Name: "Home", PrimaryURL: "https://www.nyu.edu", ScreenSizes: []string{"320x2500", "1920x1080"}},
		{Name: long, PrimaryURL: "https://www.nyu.edu/alumni"},
	})

	out := NewPrinter(io.Discard, false).ScenarioTable(cat)
	for _, want := range []string{"NAME", "Home", "320x2500, 1920x1080", "default", "…"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, long) {
		t.Error("long name not clipped")
	}
	if w := runewidth.StringWidth(clip(long)); w > MaxCellWidth {
		t.Errorf("clipped width = %d, want <= %d", w, MaxCellWidth)
	}
}

func TestReaderInput_ReadLine(t *testing.T) {
	in := NewReaderInput(strings.NewReader("auto\r\n\ny\n"), io.Discard)
	var got []string
	for {
		line, err := in.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		got = append(got, line)
	}
	if strings.Join(got, "|") != "auto||y" {
		t.Fatalf("lines = %q", got)
	}
}

func TestReaderInput_Lines(t *testing.T) {
	in := NewReaderInput(strings.NewReader("m\n0\ny\n"), io.Discard)
	var got []string
	for line := range in.Lines(context.Background()) {
		got = append(got, line)
	}
	if strings.Join(got, " ") != "m 0 y" {
		t.Fatalf("lines = %q", got)
	}
	if err := in.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
