// Package prompt provides the interactive confirmation gate used before
// destructive operations.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// ErrAborted is returned when the user declines or interrupts the prompt.
var ErrAborted = errors.New("import aborted")

// IsAborted reports whether err means the user declined to proceed.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort)
}

// Confirmer asks a single yes/no question. On a terminal it uses promptui;
// otherwise it reads one line from its input.
type Confirmer struct {
	in          io.Reader
	out         io.Writer
	prefix      string
	interactive bool
}

// New returns a Confirmer reading from in and writing prompts to out.
// Prompts are prefixed with prefix (e.g. the program name).
func New(in io.Reader, out io.Writer, prefix string) *Confirmer {
	return &Confirmer{
		in:          in,
		out:         out,
		prefix:      prefix,
		interactive: isTerminal(in),
	}
}

// Confirm shows label and returns true only for a case-insensitive "y".
// Any other answer, including end of input, returns false.
// Ctrl+C returns ErrAborted.
func (c *Confirmer) Confirm(label string) (bool, error) {
	if c.prefix != "" {
		label = c.prefix + ": " + label
	}
	if c.interactive {
		return c.confirmTerminal(label)
	}
	return c.confirmLine(label)
}

func (c *Confirmer) confirmTerminal(label string) (bool, error) {
	p := promptui.Prompt{
		Label:  label,
		Stdout: nopWriteCloser{c.out},
	}
	if rc, ok := c.in.(io.ReadCloser); ok {
		p.Stdin = rc
	}

	result, err := p.Run()
	switch {
	case err == nil:
		return isYes(result), nil
	case errors.Is(err, promptui.ErrInterrupt):
		return false, ErrAborted
	case errors.Is(err, promptui.ErrEOF), errors.Is(err, promptui.ErrAbort):
		return false, nil
	default:
		return false, errors.Wrap(err, "reading confirmation")
	}
}

func (c *Confirmer) confirmLine(label string) (bool, error) {
	if _, err := fmt.Fprint(c.out, label); err != nil {
		return false, errors.Wrap(err, "writing prompt")
	}
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, errors.Wrap(err, "reading confirmation")
	}
	return isYes(line), nil
}

func isYes(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
