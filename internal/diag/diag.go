// Package diag implements the diagnostic collector every pipeline phase
// accumulates into. Phases never panic or return a Go error for source
// problems; they append a Diagnostic and keep going, exactly as spec.md §7
// describes ("phases never throw; they return a result plus accumulated
// diagnostics").
package diag

import (
	"fmt"

	"github.com/blend65/blend65/internal/source"
)

// Severity ranks a diagnostic for exit-code purposes.
type Severity int

const (
	SeverityHint Severity = iota
	SeverityWarning
	SeverityError
	SeverityInternal
)

func (s Severity) String() string {
	switch s {
	case SeverityHint:
		return "hint"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Code is the closed taxonomy from spec.md §7. Kinds, not Go type names.
type Code string

const (
	// Parser errors
	UnexpectedToken        Code = "UnexpectedToken"
	ExpectedToken           Code = "ExpectedToken"
	DuplicateModule         Code = "DuplicateModule"
	InvalidModuleScope      Code = "InvalidModuleScope"
	UnterminatedBlock       Code = "UnterminatedBlock"
	MissingEndKeyword       Code = "MissingEndKeyword"
	InvalidNumberLiteral    Code = "InvalidNumberLiteral"
	UnterminatedString      Code = "UnterminatedString"
	WildcardInPath          Code = "WildcardInPath"
	ReexportNotSupported    Code = "ReexportNotSupported"
	InvalidImportSyntax     Code = "InvalidImportSyntax"
	ExportRequiresDeclaration Code = "ExportRequiresDeclaration"
	ModuleAfterImplicit     Code = "ModuleAfterImplicit"
	ExecutableAtModuleScope Code = "ExecutableAtModuleScope"
	DeclarationAfterCode    Code = "DeclarationAfterCode"

	// Semantic errors
	UndefinedVariable     Code = "UndefinedVariable"
	TypeMismatch          Code = "TypeMismatch"
	MissingConstInitializer Code = "MissingConstInitializer"
	DuplicateDeclaration  Code = "DuplicateDeclaration"
	DuplicateExportedMain Code = "DuplicateExportedMain"
	ModuleNotFound        Code = "ModuleNotFound"
	CircularImport        Code = "CircularImport"
	AssignToConst         Code = "AssignToConst"
	ArrayReassignment     Code = "ArrayReassignment"
	AddressOfNonLvalue    Code = "AddressOfNonLvalue"
	ReturnTypeMismatch    Code = "ReturnTypeMismatch"
	InvalidMemoryMapScope Code = "InvalidMemoryMapScope"
	ZeroPageOverflow      Code = "ZeroPageOverflow"
	MemoryOverlap         Code = "MemoryOverlap"
	CannotInferArraySize  Code = "CannotInferArraySize"
	LengthUnknownSize     Code = "LengthUnknownSize"
	IntrinsicArityMismatch Code = "IntrinsicArityMismatch"
	MissingMain           Code = "MissingMain"
	NoSuchFunction        Code = "NoSuchFunction"
	DivisionByZero        Code = "DivisionByZero"
	IndirectCallNotSupported Code = "IndirectCallNotSupported"

	// Warnings / hints
	ImplicitMainExport  Code = "ImplicitMainExport"
	UnusedVariable      Code = "UnusedVariable"
	UnusedFunction      Code = "UnusedFunction"
	UnusedImport        Code = "UnusedImport"
	UnreachableCode     Code = "UnreachableCode"
	DeadStore           Code = "DeadStore"
	ImplicitConversion  Code = "ImplicitConversion"
	ZeroPageNearOverflow Code = "ZeroPageNearOverflow"

	// Internal errors
	ILValidationFailure  Code = "ILValidationFailure"
	SSAVerificationFailure Code = "SSAVerificationFailure"
	UnsupportedOpcode    Code = "UnsupportedOpcode"
)

// Edit is a suggested fix: replace the text at Location with Replacement.
type Edit struct {
	Location    source.Location
	Replacement string
}

// Diagnostic is one accumulated compiler message.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Location
	Related  []source.Location
	Fixes    []Edit
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s [%s]: %s", d.Primary, d.Severity, d.Code, d.Message)
}

// Collector accumulates diagnostics across a single compilation session.
// Appended only; never rewritten, per spec.md §5.
type Collector struct {
	diagnostics []Diagnostic
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Add(d Diagnostic) {
	c.diagnostics = append(c.diagnostics, d)
}

func (c *Collector) Errorf(code Code, loc source.Location, format string, args ...any) {
	c.Add(Diagnostic{Severity: SeverityError, Code: code, Message: fmt.Sprintf(format, args...), Primary: loc})
}

func (c *Collector) Warnf(code Code, loc source.Location, format string, args ...any) {
	c.Add(Diagnostic{Severity: SeverityWarning, Code: code, Message: fmt.Sprintf(format, args...), Primary: loc})
}

func (c *Collector) Hintf(code Code, loc source.Location, format string, args ...any) {
	c.Add(Diagnostic{Severity: SeverityHint, Code: code, Message: fmt.Sprintf(format, args...), Primary: loc})
}

func (c *Collector) Internalf(code Code, loc source.Location, format string, args ...any) {
	c.Add(Diagnostic{Severity: SeverityInternal, Code: code, Message: fmt.Sprintf(format, args...), Primary: loc})
}

// All returns every diagnostic accumulated so far, in emission order.
func (c *Collector) All() []Diagnostic {
	return c.diagnostics
}

// HasErrors reports whether any diagnostic is at error severity or above.
// The orchestrator uses this to decide whether to abort at a phase boundary.
func (c *Collector) HasErrors() bool {
	for _, d := range c.diagnostics {
		if d.Severity >= SeverityError {
			return true
		}
	}
	return false
}

// MaxSeverity returns the highest severity observed, or SeverityHint if the
// collector is empty. Used to compute the process exit code.
func (c *Collector) MaxSeverity() Severity {
	max := SeverityHint
	for _, d := range c.diagnostics {
		if d.Severity > max {
			max = d.Severity
		}
	}
	return max
}

// Merge appends every diagnostic from other into c, preserving order.
func (c *Collector) Merge(other *Collector) {
	if other == nil {
		return
	}
	c.diagnostics = append(c.diagnostics, other.diagnostics...)
}
