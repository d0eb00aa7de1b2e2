package views

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

type Prompter interface {
	// Prompt returns def for an empty answer and ok=false when the user cancels.
	Prompt(label, def string) (answer string, ok bool)
	Confirm(question string) bool
}

// CancelInput aborts the current prompt.
const CancelInput = "."

type Terminal struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewScanner(in), out: out}
}

func (t *Terminal) Prompt(label, def string) (string, bool) {
	if def != "" {
		fmt.Fprintf(t.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(t.out, "%s: ", label)
	}
	if !t.in.Scan() {
		return "", false
	}
	line := strings.TrimSpace(t.in.Text())
	switch line {
	case CancelInput:
		return "", false
	case "":
		return def, true
	}
	return line, true
}

func (t *Terminal) Confirm(question string) bool {
	answer, ok := t.Prompt(question+" (y/N)", "")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}
