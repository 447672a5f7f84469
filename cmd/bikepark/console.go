package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// console reads lines from the terminal and doubles as the scanner's
// permission prompt.
type console struct {
	in  *bufio.Scanner
	out io.Writer
}

func newConsole(in io.Reader, out io.Writer) *console {
	return &console{in: bufio.NewScanner(in), out: out}
}

// readLine prints prompt and returns the next trimmed line. ok is false at
// end of input.
func (c *console) readLine(prompt string) (line string, ok bool) {
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *console) confirm(question string) bool {
	answer, ok := c.readLine(question + " [y/N] ")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	}
	return false
}

// RequestPermission asks the user to allow the scanner.
func (c *console) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.confirm("Allow access to the camera?"), nil
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) println(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(c.out, style.Render(fmt.Sprintf(format, args...)))
}

func (c *console) ok(format string, args ...any) {
	c.println(okStyle, format, args...)
}

func (c *console) warn(format string, args ...any) {
	c.println(warnStyle, format, args...)
}

func (c *console) fail(format string, args ...any) {
	c.println(errorStyle, format, args...)
}
