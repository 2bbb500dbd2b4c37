package asmdir

import "fmt"

// Diagnostics accumulates errors and warnings instead of the original
// source's setjmp/longjmp non-local exit (spec §5, §7): a fatal condition
// still returns an error from the call that detected it (so the immediate
// caller can stop), but the full list survives for the top-level per-unit
// entry point to report, matching "the compilation state must be considered
// poisoned for that unit but still safely destructible".
type Diagnostics struct {
	Errors   []string
	Warnings []string
}

func (d *Diagnostics) Errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	d.Errors = append(d.Errors, msg)
	return fmt.Errorf("%s", msg)
}

// Warnf records a warning without producing an error (spec §7's
// warn_unsupported class: `.ident`, `.size N,*`, `.file`, unrecognised
// `.type` spellings, and the inline-asm section-restore warning).
func (d *Diagnostics) Warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) OK() bool { return len(d.Errors) == 0 }
