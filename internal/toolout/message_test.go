package toolout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccargo/internal/toolchain"
)

func collectAll(t *testing.T, input string, kind toolchain.ToolKind, family toolchain.Family) []Message {
	t.Helper()
	it := NewMessageIter(strings.NewReader(input), kind, family, false, false)
	return Collect(it)
}

func TestParseGccError(t *testing.T) {
	msgs := collectAll(t, "foo.c:10:5: error: 'x' undeclared\n", toolchain.KindCompiler, toolchain.Gnu)
	require.Len(t, msgs, 1)
	require.Equal(t, MsgHeader, msgs[0].Kind)
	assert.Equal(t, Error, msgs[0].Header.Kind)
	assert.Equal(t, "foo.c", msgs[0].Header.Loc.Path)
	assert.Equal(t, "10", msgs[0].Header.Loc.Line)
	assert.Equal(t, "5", msgs[0].Header.Loc.Column)
	assert.Equal(t, "'x' undeclared", msgs[0].Header.Msg)
}

func TestParseGccWarningWithFunction(t *testing.T) {
	input := "foo.c: In function 'bar':\nfoo.c:3:1: warning: unused variable 'y'\n"
	msgs := collectAll(t, input, toolchain.KindCompiler, toolchain.Gnu)
	require.Len(t, msgs, 1)
	assert.Equal(t, Warning, msgs[0].Header.Kind)
	assert.Equal(t, "bar", msgs[0].Header.Loc.Func)
}

func TestParseMsvcError(t *testing.T) {
	input := "foo.cpp(12): error C2065: 'x': undeclared identifier\n"
	msgs := collectAll(t, input, toolchain.KindCompiler, toolchain.Msvc)
	require.Len(t, msgs, 1)
	assert.Equal(t, Error, msgs[0].Header.Kind)
	assert.Equal(t, "foo.cpp", msgs[0].Header.Loc.Path)
	assert.Equal(t, "12", msgs[0].Header.Loc.Line)
	assert.Equal(t, "C2065", msgs[0].Header.Code)
}

func TestParseMsvcShowIncludesIsExtra(t *testing.T) {
	input := "Note: including file: C:\\foo\\bar.h\n"
	msgs := collectAll(t, input, toolchain.KindCompiler, toolchain.Msvc)
	require.Len(t, msgs, 1)
	assert.Equal(t, MsgExtra, msgs[0].Kind)
	assert.Equal(t, `C:\foo\bar.h`, msgs[0].Extra.IncludePath)
}

func TestParseLdError(t *testing.T) {
	input := "/usr/bin/ld: foo.o:(.text+0x10): undefined reference to `bar'\n"
	msgs := collectAll(t, input, toolchain.KindLinker, toolchain.Gnu)
	require.Len(t, msgs, 1)
	assert.Equal(t, Error, msgs[0].Header.Kind)
	assert.Equal(t, "/usr/bin/ld: foo.o", msgs[0].Header.Loc.Path)
}

func TestParseClangGeneratedSummaryIsStatus(t *testing.T) {
	input := "2 errors generated.\n"
	msgs := collectAll(t, input, toolchain.KindCompiler, toolchain.Clang)
	require.Len(t, msgs, 1)
	assert.Equal(t, MsgStatus, msgs[0].Kind)
}
