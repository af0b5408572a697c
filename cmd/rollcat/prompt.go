package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// terminalPrompter asks the operator on a terminal
type terminalPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	return &terminalPrompter{in: bufio.NewReader(in), out: out}
}

func (p *terminalPrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", errors.Wrap(err, "failed to read answer")
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks until the answer is yes or no
func (p *terminalPrompter) Confirm(question string) (bool, error) {
	for {
		fmt.Fprintf(p.out, "%s (y/n): ", question)
		answer, err := p.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer y or n.")
	}
}

// Ask returns one line of text
func (p *terminalPrompter) Ask(question string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", question)
	return p.readLine()
}
