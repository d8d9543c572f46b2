package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
)

// Commands offered for tab completion on a terminal.
var Commands = []string{
	"auto", "manual", "auto run", "approve all", "show list", "combine reports",
	"test", "approve", "reference",
}

// Input reads operator lines from a terminal through readline, or from any
// other reader line by line.
type Input struct {
	rl      *readline.Instance
	scanner *bufio.Scanner
	out     io.Writer
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewInput reads from in, using readline when both in and out are
// terminals.
func NewInput(in, out *os.File) (*Input, error) {
	if !IsTerminal(in) || !IsTerminal(out) {
		return NewReaderInput(in, out), nil
	}
	completer := readline.NewPrefixCompleter()
	for _, c := range Commands {
		completer.Children = append(completer.Children, readline.PcItem(c))
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		Stdin:           in,
		Stdout:          out,
	})
	if err != nil {
		return nil, fmt.Errorf("init readline: %w", err)
	}
	return &Input{rl: rl, out: out}, nil
}

// NewReaderInput reads lines from r without line editing.
func NewReaderInput(r io.Reader, out io.Writer) *Input {
	return &Input{scanner: bufio.NewScanner(r), out: out}
}

// Writer is where output must go so it does not clobber the prompt.
func (in *Input) Writer() io.Writer {
	if in.rl != nil {
		return in.rl.Stdout()
	}
	return in.out
}

// ReadLine blocks for one line. It returns io.EOF at end of input or
// when the operator interrupts.
func (in *Input) ReadLine() (string, error) {
	if in.rl != nil {
		line, err := in.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return strings.TrimRight(line, "\r\n"), err
	}
	if in.scanner.Scan() {
		return strings.TrimRight(in.scanner.Text(), "\r"), nil
	}
	if err := in.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Lines feeds every line into the returned channel until input ends or
// ctx is done. The channel is closed at the end.
func (in *Input) Lines(ctx context.Context) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for {
			line, err := in.ReadLine()
			if err != nil {
				return
			}
			select {
			case ch <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

// Close releases the terminal.
func (in *Input) Close() error {
	if in.rl != nil {
		return in.rl.Close()
	}
	return nil
}
