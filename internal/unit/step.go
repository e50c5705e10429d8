package unit

import (
	"path/filepath"
	"strings"
)

// ProgramKind discriminates the Step.Program tagged union.
type ProgramKind int

const (
	// ProgramBinary runs a path directly (a pre-built binary on disk or
	// found on PATH).
	ProgramBinary ProgramKind = iota
	// ProgramTargetRef runs the output of another Target in this unit
	// graph — introduces a Step -> Target dependency edge.
	ProgramTargetRef
	// ProgramScript runs an interpreter against a script file, e.g.
	// python/sh/cmd.exe/powershell.exe dispatched by extension.
	ProgramScript
)

// Program is the closed sum type naming what a Step executes.
type Program struct {
	Kind   ProgramKind
	Binary string     // ProgramBinary
	Target TargetName // ProgramTargetRef
	Tool   string     // ProgramScript: interpreter executable
	Script string      // ProgramScript: script file path
}

// ParseProgram mirrors the original's `From<&str>` dispatch: try parsing
// as a TargetName first, then dispatch on file extension.
func ParseProgram(s string) Program {
	if name, err := ParseTargetName(s); err == nil {
		return Program{Kind: ProgramTargetRef, Target: name}
	}
	switch strings.ToLower(filepath.Ext(s)) {
	case ".py":
		return Program{Kind: ProgramScript, Tool: "python", Script: s}
	case ".sh":
		return Program{Kind: ProgramScript, Tool: "sh", Script: s}
	case ".bat":
		return Program{Kind: ProgramScript, Tool: "cmd.exe", Script: s}
	case ".ps1":
		return Program{Kind: ProgramScript, Tool: "powershell.exe", Script: s}
	default:
		return Program{Kind: ProgramBinary, Binary: s}
	}
}

// Step is a named build action: an arbitrary subprocess with declared
// inputs/outputs. Step is always handled by pointer (*Step); equality
// is identity-based (pointer comparison), matching the original's
// std::ptr::eq Eq/Hash impl — two otherwise-identical steps are distinct
// units.
type Step struct {
	Name     string
	Package  PackageId
	Inputs   []string
	Outputs  []string
	Depends  []TargetName
	Program  Program
	Args     []string
}

// FullName returns this step's namespaced TargetName.
func (s *Step) FullName() TargetName {
	return NewTargetName(s.Package.Name(), s.Name)
}

// OutputName is the sentinel file name written unconditionally after a
// step runs, regardless of its exit status (the exit status itself
// determines whether the *build* succeeded).
func (s *Step) OutputName() string {
	return s.Name + ".out"
}

// Target returns the referenced TargetName if Program is a target
// reference.
func (s *Step) Target() (TargetName, bool) {
	if s.Program.Kind == ProgramTargetRef {
		return s.Program.Target, true
	}
	return TargetName{}, false
}

// SplitArgs performs the naive whitespace split the original uses for
// step argv — shell-quoting semantics are explicitly undefined (see
// spec.md §9 open questions).
func SplitArgs(s string) []string {
	return strings.Fields(s)
}
