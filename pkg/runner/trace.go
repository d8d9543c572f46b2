package runner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zhumingcheng697/BackstopJS-Test/pkg/backstop"
)

// ActionRecord is one finished BackstopJS invocation.
type ActionRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Engine    string          `json:"engine"`
	Index     int             `json:"index"`
	Scenario  string          `json:"scenario"`
	Requested backstop.Action `json:"requested"`
	Effective backstop.Action `json:"effective"`
	Succeeded bool            `json:"succeeded"`
	Error     string          `json:"error,omitempty"`
	Duration  time.Duration   `json:"duration"`
}

// TraceWriter appends ActionRecords to a JSONL file.
type TraceWriter struct {
	file   *os.File
	writer *bufio.Writer
	enc    *json.Encoder
}

// NewTraceWriter opens (creating if needed) the trace file at path.
func NewTraceWriter(path string) (*TraceWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	w := bufio.NewWriter(f)
	return &TraceWriter{file: f, writer: w, enc: json.NewEncoder(w)}, nil
}

// Write appends rec and flushes it to disk.
func (tw *TraceWriter) Write(rec ActionRecord) error {
	if err := tw.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode trace record: %w", err)
	}
	if err := tw.writer.Flush(); err != nil {
		return fmt.Errorf("flush trace: %w", err)
	}
	return nil
}

// Close flushes and closes the trace file.
func (tw *TraceWriter) Close() error {
	if err := tw.writer.Flush(); err != nil {
		return err
	}
	return tw.file.Close()
}

// ReadTrace loads every record from a trace file.
func ReadTrace(path string) ([]ActionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()

	var out []ActionRecord
	dec := json.NewDecoder(f)
	for dec.More() {
		var rec ActionRecord
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("decode trace record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
	return out, nil
}
