package toolout

import (
	"bytes"
	"strings"
)

// parser holds per-stream state that spans multiple lines: gcc/clang
// emit "in function `f'" on its own line before the diagnostic it
// belongs to, and clang needs the previous header's line number to
// prefix continuation/snippet lines the way gcc does inline.
type parser struct {
	kind          *Kind
	funcName      string
	lastLine      string
	warnAsErrors  bool
}

func (p *parser) msvc(line []byte) *Message {
	if bytes.HasPrefix(line, []byte("Generating Code...")) ||
		bytes.HasPrefix(line, []byte("   Creating library")) ||
		!bytes.Contains(line, []byte(" ")) {
		return nil
	}

	if rest, ok := cutPrefix(line, []byte("Note: including file:")); ok {
		path := strings.TrimSpace(string(rest))
		return &Message{Kind: MsgExtra, Extra: Extra{IncludePath: path}}
	}

	// MSVC diagnostic format: `Origin : Subcategory Category Code : Text`
	col0 := bytes.Index(line, []byte("):"))
	if col0 < 0 {
		return nil
	}
	col0++
	rel := bytes.IndexByte(line[col0+1:], ':')
	if rel < 0 {
		return nil
	}
	col1 := 1 + col0 + rel

	loc := line[:col0]
	status := line[col0+2 : col1]
	body := line[col1+2:]

	var code string
	fields := bytes.Fields(status)
	if len(fields) > 0 {
		code = string(fields[len(fields)-1])
	}

	var kind Kind
	switch {
	case bytes.Contains(status, []byte("error")):
		if bytes.HasSuffix(line, []byte("treated as an error")) {
			p.warnAsErrors = true
		}
		kind = Error
	case bytes.Contains(status, []byte("warning")):
		if p.warnAsErrors {
			kind = Error
		} else {
			kind = Warning
		}
	default:
		return &Message{Kind: MsgBody, Body: string(line)}
	}

	return &Message{Kind: MsgHeader, Header: Status{
		Kind: kind,
		Msg:  string(body),
		Code: code,
		Loc:  locMsvc(loc),
	}}
}

func (p *parser) clang(line []byte, colors bool) *Message {
	if colors {
		replaceWarningColor(line)
		// clang highlights the problematic code span in green; recolor
		// it to match the diagnostic's severity.
		if p.kind != nil {
			if *p.kind == Error {
				replaceColor(GREEN, RED, line)
			} else {
				replaceColor(GREEN, YELLOW, line)
			}
		}
	}

	msg := p.gccClang(line)

	switch {
	case msg.Kind == MsgBody && strings.HasSuffix(msg.Body, " generated."):
		msg.Kind = MsgStatus
	case msg.Kind == MsgBody && strings.Contains(msg.Body, "    "):
		prefix := "      | "
		if p.lastLine != "" {
			prefix = padLeft(p.lastLine, 5) + " | "
			p.lastLine = ""
		}
		msg.Body = prefix + msg.Body
	case msg.Kind == MsgHeader:
		p.lastLine = msg.Header.Loc.Line
	}
	return &msg
}

func padLeft(s string, width int) string {
	for len(s) < width {
		s = " " + s
	}
	return s
}

func (p *parser) gcc(line []byte, colors bool) *Message {
	if colors {
		replaceWarningColor(line)
	}

	if fn, ok := funcName(line); ok {
		p.funcName = fn
		return nil
	}

	msg := p.gccClang(line)
	return &msg
}

func (p *parser) ld(line []byte, windows bool) *Message {
	if fn, ok := funcNameQuoted(line); ok {
		p.funcName = fn
		return nil
	}

	if windows {
		if i := bytes.Index(line, []byte("/ld.exe: ")); i >= 0 {
			line = line[i+1:]
		}
	}

	pathEnd := bytes.Index(line, []byte(":("))
	if pathEnd < 0 {
		return nil
	}
	rel := bytes.Index(line[pathEnd+2:], []byte("):"))
	if rel < 0 {
		return nil
	}
	sectionEnd := 2 + pathEnd + rel

	return &Message{Kind: MsgHeader, Header: Status{
		Kind: Error,
		Code: string(line[pathEnd+2 : sectionEnd]),
		Msg:  string(line[sectionEnd+2:]),
		Loc: Loc{
			Path: string(line[:pathEnd]),
			Func: p.funcName,
		},
	}}
}

func (p *parser) gccClang(line []byte) Message {
	var kind Kind
	var start, end int
	if i := bytes.Index(line, []byte("error:")); i >= 0 {
		kind, start, end = Error, i, i+len("error: ")
	} else if i := bytes.Index(line, []byte("warning:")); i >= 0 {
		kind, start, end = Warning, i, i+len("warning: ")
	} else {
		return Message{Kind: MsgBody, Body: string(line)}
	}
	p.kind = &kind

	locEnd := bytes.LastIndexByte(line[:start], ':')
	if locEnd < 0 {
		return Message{Kind: MsgBody, Body: string(line)}
	}

	loc := locGccClang(line[:locEnd])
	loc.Func = p.funcName
	p.funcName = ""

	return Message{Kind: MsgHeader, Header: Status{
		Kind: kind,
		Msg:  string(line[end:]),
		Loc:  loc,
	}}
}

// funcName extracts `in function 'f'` / `in function \`f'` payloads,
// trimming embedded color escapes gcc/clang sometimes leave inside and
// a pair of surrounding ASCII single quotes.
func funcName(line []byte) (string, bool) {
	i := bytes.Index(line, []byte("n function "))
	if i < 0 {
		return "", false
	}
	start := i + len("n function ")
	if start >= len(line) {
		return "", false
	}
	fn := trimColors(line[start : len(line)-1])
	if len(fn) >= 2 && fn[0] == '\'' && fn[len(fn)-1] == '\'' {
		fn = fn[1 : len(fn)-1]
	}
	return string(fn), true
}

// funcNameQuoted is the ld-specific variant that additionally strips the
// surrounding quote characters.
func funcNameQuoted(line []byte) (string, bool) {
	fn, ok := funcName(line)
	if !ok {
		return "", false
	}
	if len(fn) >= 2 {
		return fn[1 : len(fn)-1], true
	}
	return fn, true
}

func locGccClang(loc []byte) Loc {
	loc = trimColors(loc)

	colBegin := bytes.LastIndexByte(loc, ':')
	if colBegin < 0 {
		return Loc{Path: string(loc)}
	}
	lnBegin := bytes.LastIndexByte(loc[:colBegin], ':')
	if lnBegin < 0 {
		return Loc{Path: string(loc[:colBegin]), Line: string(loc[colBegin+1:])}
	}
	return Loc{
		Path:   string(loc[:lnBegin]),
		Line:   string(loc[lnBegin+1 : colBegin]),
		Column: string(loc[colBegin+1:]),
	}
}

func locMsvc(loc []byte) Loc {
	parenIdx := bytes.LastIndexByte(loc, '(')
	if parenIdx < 0 {
		return Loc{Path: string(loc)}
	}
	lnBegin := parenIdx + 1
	locEnd := len(loc) - 1

	lnEnd := locEnd
	var colBegin = -1
	if comma := bytes.LastIndexByte(loc, ','); comma >= 0 {
		lnEnd = comma
		colBegin = comma + 1
	}

	out := Loc{Path: string(loc[:parenIdx])}
	out.Line = string(loc[lnBegin:lnEnd])
	if colBegin >= 0 {
		out.Column = string(loc[colBegin:locEnd])
	}
	return out
}

// Ansi SGR color codes (without the escape prefix), used for replacement.
const (
	RED     = '1'
	GREEN   = '2'
	YELLOW  = '3'
	MAGENTA = '5'
)

// replaceWarningColor normalizes gcc/clang's magenta warning highlight to
// yellow, so every family's warnings render the same color.
func replaceWarningColor(haystack []byte) {
	replaceColor(MAGENTA, YELLOW, haystack)
}

func replaceColor(color, replacement byte, haystack []byte) {
	pattern := []byte{';', '3', color, 'm'}
	offset := 0
	for {
		i := bytes.Index(haystack[offset:], pattern)
		if i < 0 {
			return
		}
		haystack[offset+i+2] = replacement
		offset += i + 1
	}
}

// trimColors strips a leading `\x1b[K` or `\x1b[1m` escape (and
// everything before the next escape) from s, matching how gcc/clang
// bracket the file:line portion of a diagnostic in bold when colors are
// enabled.
func trimColors(s []byte) []byte {
	parts := [][]byte{
		{0x1b, '[', 'K'},
		{0x1b, '[', '1', 'm'},
	}
	for _, part := range parts {
		begin := bytes.Index(s, part)
		if begin < 0 {
			continue
		}
		begin += len(part)
		if end := bytes.IndexByte(s[begin:], 0x1b); end >= 0 {
			return s[begin : begin+end]
		}
		return s[begin:]
	}
	return s
}

func cutPrefix(s, prefix []byte) ([]byte, bool) {
	if bytes.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return nil, false
}
