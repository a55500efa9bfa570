// =============================================================================
// lineeditor.go - Line Editor with Dual-Mode Operation
// =============================================================================
//
// The REPL reads input in one of two ways:
//
//   - Interactive mode: ergochat/readline with Emacs keybindings, persistent
//     history and Ctrl-R search, used when stdin is a terminal.
//   - Non-interactive mode: a bufio.Scanner with the prompt printed by hand,
//     used for piped input, Emacs comint and tests.
//
// History lives at ~/.gma2_history with a 500-entry limit.
//
// =============================================================================

package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	historyFileName = ".gma2_history"
	historySize     = 500
)

// LineEditor reads lines from a terminal with readline, or from any other
// reader with a scanner.
type LineEditor struct {
	// interactive is true when input is a TTY outside Emacs.
	interactive bool

	// rl is nil in non-interactive mode.
	rl *readline.Instance

	// scanner and out are used in non-interactive mode only.
	scanner *bufio.Scanner
	out     io.Writer
}

// NewLineEditor picks the input mode for in. Only an *os.File that is a
// terminal gets readline, which then owns the process's stdin and stdout;
// everything else is scanned line by line with the prompt written to out.
func NewLineEditor(in io.Reader, out io.Writer) *LineEditor {
	f, isFile := in.(*os.File)
	interactive := isFile && term.IsTerminal(int(f.Fd())) && os.Getenv("INSIDE_EMACS") == ""

	if !interactive {
		return newScannerEditor(in, out)
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:  historyPath(),
		HistoryLimit: historySize,
		// Lines are added to history by GetLine so blank ones are skipped.
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		// Degrade to plain input rather than refuse to start.
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return newScannerEditor(in, out)
	}

	return &LineEditor{interactive: true, rl: rl}
}

func newScannerEditor(in io.Reader, out io.Writer) *LineEditor {
	return &LineEditor{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// historyPath returns the history file location, falling back to the
// working directory when the home directory is unknown.
func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFileName
	}
	return filepath.Join(home, historyFileName)
}

// GetLine reads one line after showing prompt. It returns io.EOF at end of
// input and when the user presses Ctrl-D or Ctrl-C.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getNonInteractiveLine(prompt)
}

func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	le.rl.SetPrompt(prompt)

	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}

	if trimmed := strings.TrimSpace(line); trimmed != "" {
		le.rl.SaveToHistory(trimmed)
	}
	return line, nil
}

func (le *LineEditor) getNonInteractiveLine(prompt string) (string, error) {
	fmt.Fprint(le.out, prompt)

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// Close saves history and releases the terminal. It is safe to call more
// than once.
func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}

// IsInteractive reports whether readline is in use.
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}
