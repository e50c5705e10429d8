// Package toolout implements component D: a streaming parser that turns
// a compiler or linker's raw stdout/stderr into structured diagnostic
// messages, dispatching on the tool's family (MSVC/GNU/Clang) and kind
// (compiler/linker), and normalizing each family's wildly different
// wire format into one shape the executor can render or aggregate.
package toolout

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/fatih/color"

	"ccargo/internal/toolchain"
)

// Kind classifies a diagnostic message's severity.
type Kind int

const (
	Warning Kind = iota
	Error
)

func (k Kind) String() string {
	if k == Error {
		return "error"
	}
	return "warning"
}

// Loc locates a diagnostic within a source file.
type Loc struct {
	Path   string
	Line   string // empty means unknown
	Column string // empty means unknown
	Func   string // empty means unknown
}

// Status is a fully parsed diagnostic header.
type Status struct {
	Kind Kind
	Loc  Loc
	Msg  string
	Code string // empty means none (gcc/clang have no error codes)
}

// Extra carries side-channel information scraped out of the tool's
// output that isn't itself a diagnostic — currently only MSVC's
// `-showIncludes` lines.
type Extra struct {
	IncludePath string
}

// MessageKind discriminates which field of Message is populated.
type MessageKind int

const (
	MsgHeader MessageKind = iota
	MsgBody
	MsgStatus
	MsgExtra
)

// Message is one parsed line (or logical unit) of tool output.
type Message struct {
	Kind   MessageKind
	Header Status
	Body   string // for MsgBody/MsgStatus
	Extra  Extra
}

// Print renders m to w, matching the original's human-readable layout:
// a colored "error/warning <code>: <msg>" line followed by a "   --> path:line:col in function `f`" location line.
func (m Message) Print(w io.Writer, colors bool) error {
	switch m.Kind {
	case MsgExtra:
		return nil
	case MsgBody, MsgStatus:
		_, err := fmt.Fprintf(w, "%s\n", m.Body)
		return err
	case MsgHeader:
		s := m.Header
		var buf bytes.Buffer
		label := s.Kind.String()
		if colors {
			c := color.New(color.Bold, color.FgYellow)
			if s.Kind == Error {
				c = color.New(color.Bold, color.FgRed)
			}
			label = c.Sprint(label)
		}
		buf.WriteString(label)
		if s.Code != "" {
			buf.WriteString(" ")
			buf.WriteString(s.Code)
		}
		buf.WriteString(": ")
		buf.WriteString(s.Msg)
		buf.WriteString("\n   --> ")
		buf.WriteString(s.Loc.Path)
		if s.Loc.Line != "" {
			buf.WriteString(":")
			buf.WriteString(s.Loc.Line)
		}
		if s.Loc.Column != "" {
			buf.WriteString(":")
			buf.WriteString(s.Loc.Column)
		}
		if s.Loc.Func != "" {
			buf.WriteString(" in function `")
			buf.WriteString(s.Loc.Func)
			buf.WriteString("`")
		}
		buf.WriteString("\n")
		_, err := w.Write(buf.Bytes())
		return err
	default:
		return nil
	}
}

// MessageIter streams Messages out of a tool's combined stdout/stderr.
type MessageIter struct {
	kind    toolchain.ToolKind
	family  toolchain.Family
	windows bool
	colors  bool
	scanner *bufio.Scanner
	parser  parser
	done    bool
}

// NewMessageIter wraps r, dispatching each line through the parser
// matching family/kind. windows indicates the host (for ld.exe path
// shortening); colors indicates whether ANSI color codes are present in
// the input and should be normalized.
func NewMessageIter(r io.Reader, kind toolchain.ToolKind, family toolchain.Family, windows, colors bool) *MessageIter {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &MessageIter{kind: kind, family: family, windows: windows, colors: colors, scanner: scanner}
}

// Next returns the next parsed Message, or (Message{}, false) at EOF.
func (it *MessageIter) Next() (Message, bool) {
	if it.done {
		return Message{}, false
	}
	for it.scanner.Scan() {
		line := bytes.TrimRight(it.scanner.Bytes(), "\r")
		part := make([]byte, len(line))
		copy(part, line)

		var msg *Message
		switch it.family {
		case toolchain.Msvc:
			msg = it.parser.msvc(part)
		case toolchain.Gnu:
			if it.kind == toolchain.KindLinker {
				msg = it.parser.ld(part, it.windows)
			} else {
				msg = it.parser.gcc(part, it.colors)
			}
		case toolchain.Clang:
			if it.kind == toolchain.KindLinker {
				if it.windows {
					msg = it.parser.msvc(part)
				} else {
					msg = it.parser.ld(part, false)
				}
			} else {
				msg = it.parser.clang(part, it.colors)
			}
		}
		if msg != nil {
			return *msg, true
		}
	}
	it.done = true
	return Message{}, false
}

// Collect drains it into a slice; useful for tests and small outputs.
func Collect(it *MessageIter) []Message {
	var out []Message
	for {
		m, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}
