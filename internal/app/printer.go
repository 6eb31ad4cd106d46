package app

import (
	"fmt"
	"io"
	"sync"

	"git-metafile/internal/metafile"
)

// ProgramName prefixes every diagnostic written to the error stream.
const ProgramName = "git-metafile"

// Printer writes user-facing output: informational messages on out and
// diagnostics on errOut. Quiet suppresses informational messages only.
// It is safe for concurrent use.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
	quiet  bool
}

// NewPrinter creates a Printer.
func NewPrinter(out, errOut io.Writer, quiet bool) *Printer {
	return &Printer{out: out, errOut: errOut, quiet: quiet}
}

// Infof prints an informational message unless the printer is quiet.
func (p *Printer) Infof(format string, args ...any) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Printf prints command output. It is not affected by quiet.
func (p *Printer) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// Errorf prints a diagnostic prefixed with the program name.
func (p *Printer) Errorf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.errOut, ProgramName+": "+format+"\n", args...)
}

// Warnf prints a non-fatal diagnostic.
func (p *Printer) Warnf(format string, args ...any) {
	p.Errorf("warning: "+format, args...)
}

// ApplyReport prints the outcome of an apply or diff. Malformed lines and
// failures go to the error stream in the order they occurred; changes are
// informational for apply and command output for diff.
func (p *Printer) ApplyReport(r *metafile.ApplyReport) {
	for _, err := range r.ParseErrors {
		p.Warnf("%v", err)
	}

	for _, o := range r.Outcomes {
		switch {
		case o.Attr == metafile.AttrStat:
			p.Warnf("%v", o.Err)
		case o.Failed():
			p.Errorf("%s: %v", o, o.Err)
		case r.DryRun:
			p.Printf("%s\n", o)
		default:
			p.Infof("%s", o)
		}
	}

	if len(r.Outcomes) == 0 && len(r.ParseErrors) == 0 {
		p.Infof("nothing to do")
	}
}

// SaveReport prints the outcome of a save.
func (p *Printer) SaveReport(r *metafile.SaveReport) {
	p.Infof("saved %d entries to %s", r.Snapshot.Len(), r.Metafile)
}
