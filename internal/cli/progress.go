package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/term"
)

type stepOutcome int

const (
	stepSource stepOutcome = iota
	stepUnchanged
	stepLinked
)

const defaultStatusWidth = 80

// rewriteProgress keeps a one-line tally on stderr while documents are
// rewritten. It stays silent unless stderr is a terminal.
type rewriteProgress struct {
	out     io.Writer
	enabled bool
	width   int
	total   int
	start   time.Time

	seen      int
	linked    int
	unchanged int
	sources   int
	lastLen   int
}

func newRewriteProgress(total int, asJSON bool) *rewriteProgress {
	fd := int(os.Stderr.Fd())
	enabled := !asJSON && term.IsTerminal(fd)
	width := defaultStatusWidth
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	return &rewriteProgress{
		out:     os.Stderr,
		enabled: enabled,
		width:   width,
		total:   total,
		start:   time.Now(),
	}
}

// Step records the outcome for document id and redraws the status line.
func (p *rewriteProgress) Step(id string, outcome stepOutcome) {
	p.seen++
	switch outcome {
	case stepSource:
		p.sources++
	case stepUnchanged:
		p.unchanged++
	case stepLinked:
		p.linked++
	}
	if !p.enabled {
		return
	}
	prefix := fmt.Sprintf("rewrite %d/%d linked %d ", p.seen, p.total, p.linked)
	p.printStatus(prefix + tailFit(id, p.width-len(prefix)-1))
}

// Finish prints the final tally. Documents never reached are not counted.
func (p *rewriteProgress) Finish() {
	if !p.enabled {
		return
	}
	elapsed := time.Since(p.start).Round(time.Millisecond)
	p.printStatus(fmt.Sprintf("rewrite done: %d linked, %d unchanged, %d definition sources skipped in %s",
		p.linked, p.unchanged, p.sources, elapsed))
	fmt.Fprintln(p.out)
}

func (p *rewriteProgress) printStatus(status string) {
	if pad := p.lastLen - len(status); pad > 0 {
		status += strings.Repeat(" ", pad)
	}
	p.lastLen = len(status)
	fmt.Fprintf(p.out, "\r%s", status)
}

// tailFit shortens id to at most max bytes, keeping the end of the path
// and never splitting a rune.
func tailFit(id string, max int) string {
	if len(id) <= max {
		return id
	}
	if max <= 3 {
		return ""
	}
	cut := len(id) - (max - 3)
	for cut < len(id) && !utf8.RuneStart(id[cut]) {
		cut++
	}
	return "..." + id[cut:]
}
