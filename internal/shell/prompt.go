package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoInput is returned when the input stream ends before an answer.
var ErrNoInput = errors.New("no more input")

// Prompter asks questions on out and reads one line per answer from in.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrNoInput
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Required asks until a non-empty answer is given.
func (p *Prompter) Required(question string) (string, error) {
	for {
		fmt.Fprint(p.out, question, " ")
		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
	}
}

// String asks question, showing def in brackets when set. An empty answer
// yields def; with no default it yields "" when allowEmpty is set and asks
// again otherwise.
func (p *Prompter) String(question, def string, allowEmpty bool) (string, error) {
	for {
		fmt.Fprint(p.out, question)
		if def != "" {
			fmt.Fprintf(p.out, " [%s]", def)
		}
		fmt.Fprint(p.out, " ")

		answer, err := p.readLine()
		if err != nil {
			return "", err
		}
		if answer != "" {
			return answer, nil
		}
		if def != "" {
			return def, nil
		}
		if allowEmpty {
			return "", nil
		}
	}
}

// Int asks for an integer, re-asking on malformed input. positiveOnly rejects
// negative values; zero is accepted only with allowZero.
func (p *Prompter) Int(question string, def int, positiveOnly, allowZero bool) (int, error) {
	for {
		fmt.Fprintf(p.out, "%s [%d] ", question, def)

		answer, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if answer == "" {
			return def, nil
		}

		n, err := strconv.Atoi(strings.TrimSpace(answer))
		if err != nil {
			fmt.Fprintln(p.out, "Please enter a valid integer.")
			continue
		}
		if (n == 0 && !allowZero) || (n < 0 && positiveOnly) {
			fmt.Fprintln(p.out, "Please enter a value greater than zero.")
			continue
		}
		return n, nil
	}
}
