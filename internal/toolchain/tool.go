// Package toolchain implements component C: detecting the compiler,
// linker, and archiver for a target triple, classifying their family
// (MSVC/GNU/Clang), and translating semantic build options into
// family-specific argv.
package toolchain

import "os/exec"

// ToolKind discriminates what role a Tool plays.
type ToolKind int

const (
	KindCompiler ToolKind = iota
	KindLinker
	KindArchiver
)

func (k ToolKind) String() string {
	switch k {
	case KindCompiler:
		return "compiler"
	case KindLinker:
		return "linker"
	case KindArchiver:
		return "static archiver"
	default:
		return "tool"
	}
}

// Family governs flag-syntax translation.
type Family int

const (
	Gnu Family = iota
	Msvc
	Clang
)

func (f Family) IsMsvc() bool  { return f == Msvc }
func (f Family) IsGnu() bool   { return f == Gnu }
func (f Family) IsClang() bool { return f == Clang }

func (f Family) String() string {
	switch f {
	case Msvc:
		return "msvc"
	case Clang:
		return "clang"
	default:
		return "gnu"
	}
}

// Tool is one resolved executable (compiler, linker, or archiver) plus
// the argv/env accumulated for an invocation.
type Tool struct {
	kind   ToolKind
	family Family
	path   string
	name   string
	args   []string
	env    [][2]string
}

// NewTool wraps a resolved executable path.
func NewTool(kind ToolKind, family Family, path string) *Tool {
	return &Tool{kind: kind, family: family, path: path, name: path}
}

func (t *Tool) Kind() ToolKind  { return t.kind }
func (t *Tool) Family() Family  { return t.family }
func (t *Tool) Path() string    { return t.path }
func (t *Tool) Name() string    { return t.name }
func (t *Tool) Args() []string  { return t.args }

// Clone returns a copy of t with a fresh, independent argv/env — used
// when deriving the linker Tool from the compiler driver ("the compiler
// executable is the linker driver, cloned with a different kind").
func (t *Tool) Clone(kind ToolKind) *Tool {
	c := &Tool{kind: kind, family: t.family, path: t.path, name: t.name}
	c.args = append(c.args, t.args...)
	c.env = append(c.env, t.env...)
	return c
}

// Arg appends a single argv fragment.
func (t *Tool) Arg(a string) *Tool {
	t.args = append(t.args, a)
	return t
}

// AddArgs appends multiple argv fragments.
func (t *Tool) AddArgs(a ...string) *Tool {
	t.args = append(t.args, a...)
	return t
}

// Env sets an environment variable override for this tool's invocations.
func (t *Tool) Env(key, value string) *Tool {
	t.env = append(t.env, [2]string{key, value})
	return t
}

// ToCommand builds an *exec.Cmd invoking this tool with its accumulated
// argv, additional trailing args appended, inheriting the process
// environment plus this Tool's overrides.
func (t *Tool) ToCommand(extra ...string) *exec.Cmd {
	argv := append(append([]string{}, t.args...), extra...)
	cmd := exec.Command(t.path, argv...)
	if len(t.env) > 0 {
		cmd.Env = append(cmd.Env, osEnviron()...)
		for _, kv := range t.env {
			cmd.Env = append(cmd.Env, kv[0]+"="+kv[1])
		}
	}
	return cmd
}

// Tools bundles the compiler/linker/archiver triple for one language.
type Tools struct {
	CC *Tool
	LD *Tool
	AR *Tool
}
