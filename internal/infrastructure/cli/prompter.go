package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/doeshing/promptmate/internal/domain"
)

// Prompter asks clarifying questions on a terminal.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter constructs a prompter referencing stdio.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Ask prints q and reads one answer. A number picks the matching option and an
// empty line takes the default, if any. Returns io.EOF when input is closed.
func (p *Prompter) Ask(q domain.QuestionItem) (string, error) {
	fmt.Fprintf(p.out, "\n? %s\n", q.Text)
	for i, opt := range q.Options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}
	if q.Default != nil {
		fmt.Fprintf(p.out, "  [%s] ", *q.Default)
	} else {
		fmt.Fprint(p.out, "  > ")
	}

	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return resolveAnswer(q, strings.TrimSpace(line)), nil
}

func resolveAnswer(q domain.QuestionItem, line string) string {
	if line == "" {
		if q.Default != nil {
			return *q.Default
		}
		return ""
	}
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1]
	}
	return line
}
