package depinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnixDepFile(t *testing.T) {
	data := []byte("build/obj/a.o: src/a.c \\\n  include/a.h \\\n  include/b.h\n")
	headers := ParseUnixDepFile(data)
	assert.Equal(t, []string{"include/a.h", "include/b.h"}, headers)
}

func TestWindowsDepFileRoundTrip(t *testing.T) {
	includes := []string{"C:/proj/include/a.h", "C:/proj/include/b.h"}
	data := WriteWindowsDepFile(includes)
	parsed, ok := ParseWindowsDepFile(data)
	require.True(t, ok)
	assert.Equal(t, includes, parsed)
}

func TestReadDependencyFileDispatch(t *testing.T) {
	unix := ReadDependencyFile([]byte("a.o: a.c b.h\n"))
	assert.Equal(t, []string{"b.h"}, unix)

	winData := WriteWindowsDepFile([]string{"x.h"})
	_, ok := ParseWindowsDepFile(winData)
	assert.True(t, ok)
	assert.Equal(t, []string{"x.h"}, ReadDependencyFile(winData))
}

func TestDepInfoSerializeRoundTrip(t *testing.T) {
	d := New()
	a := d.Intern(PackageRootRelative, "src/a.c")
	h1 := d.Intern(PackageRootRelative, "include/a.h")
	h2 := d.Intern(TargetRootRelative, "generated/b.h")
	d.AddObject(a, []int{h1, h2})

	data := d.Serialize()
	got, err := Deserialize(data)
	require.NoError(t, err)

	require.Equal(t, 1, len(got.Objects))
	assert.Equal(t, a, got.Objects[0].FileIdx)
	assert.Equal(t, []int{h1, h2}, got.Objects[0].InputIdxs)

	kind, path := got.Path(h2)
	assert.Equal(t, TargetRootRelative, kind)
	assert.Equal(t, "generated/b.h", path)
}

func TestDeserializeTruncatedIsError(t *testing.T) {
	_, err := Deserialize([]byte{1, 2, 3})
	assert.Error(t, err)
}
