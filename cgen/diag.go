package cgen

import "fmt"

// Diagnostics is cgen's own error/warning sink, mirroring asmdir's — each
// core package owns its non-local-exit rewrite independently rather than
// sharing one type across unrelated components (spec §5/§7; SPEC_FULL §3).
type Diagnostics struct {
	Errors   []string
	Warnings []string
}

func (d *Diagnostics) Errorf(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	d.Errors = append(d.Errors, msg)
	return fmt.Errorf("%s", msg)
}

func (d *Diagnostics) Warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) OK() bool { return len(d.Errors) == 0 }
