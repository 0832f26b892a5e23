package errors

import "strings"

// Severity tags a validation diagnostic for rendering.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one entry in an aggregated validation report.
type Diagnostic struct {
	Err      error
	Severity Severity
}

// ValidationErrors aggregates diagnostics across a whole resolution or
// validation pass so the caller sees every problem at once instead of the
// first one encountered.
type ValidationErrors struct {
	diags []Diagnostic
}

// Add records an error-severity diagnostic.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.diags = append(v.diags, Diagnostic{Err: err, Severity: SeverityError})
	}
}

// Warn records a warning-severity diagnostic. Warnings never make the
// aggregate fail on their own.
func (v *ValidationErrors) Warn(err error) {
	if err != nil {
		v.diags = append(v.diags, Diagnostic{Err: err, Severity: SeverityWarning})
	}
}

// Merge appends all diagnostics from another aggregate.
func (v *ValidationErrors) Merge(other *ValidationErrors) {
	if other != nil {
		v.diags = append(v.diags, other.diags...)
	}
}

// Diagnostics returns the collected diagnostics in insertion order.
func (v *ValidationErrors) Diagnostics() []Diagnostic {
	return v.diags
}

// HasErrors reports whether any error-severity diagnostic was collected.
func (v *ValidationErrors) HasErrors() bool {
	for _, d := range v.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Err returns the aggregate as an error if any error-severity diagnostic was
// collected, nil otherwise.
func (v *ValidationErrors) Err() error {
	if v.HasErrors() {
		return v
	}
	return nil
}

// Error renders every diagnostic as a severity-tagged line.
func (v *ValidationErrors) Error() string {
	var b strings.Builder
	for i, d := range v.diags {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(d.Severity.String())
		b.WriteString(": ")
		b.WriteString(d.Err.Error())
	}
	return b.String()
}
