package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Prompt asks the operator for the next pose. ok is false when the
// operator is finished.
type Prompt interface {
	NextPose(ctx context.Context) (pose string, ok bool, err error)
}

// LinePrompt reads pose names line by line. An empty line, "done" in
// any case, or end of input finishes the session.
type LinePrompt struct {
	out   io.Writer
	lines chan string
}

// NewLinePrompt reads from in and writes prompts to out. Reading happens
// on its own goroutine so a pending prompt can be abandoned on interrupt.
func NewLinePrompt(in io.Reader, out io.Writer) *LinePrompt {
	p := &LinePrompt{out: out, lines: make(chan string)}
	go func() {
		defer close(p.lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			p.lines <- sc.Text()
		}
	}()
	return p
}

func (p *LinePrompt) NextPose(ctx context.Context) (string, bool, error) {
	fmt.Fprint(p.out, "Enter pose name (or 'done' to finish): ")
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case line, open := <-p.lines:
		if !open {
			return "", false, nil
		}
		pose := strings.TrimSpace(line)
		if pose == "" || strings.EqualFold(pose, "done") {
			return "", false, nil
		}
		return pose, true, nil
	}
}
