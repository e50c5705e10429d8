package ccpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"a/b/c":       "a/b/c",
		"a/b/c/./e":   "a/b/c/e",
		"a/b/c/../e":  "a/b/e",
		"./a":         "a",
		"a/../../b":   "../b",
		"/a/../../b":  "/b",
		"":            ".",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "normalize(%q)", in)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"a/b/c/../e", "/a/b/../../c", "x/./y/../z"}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "normalize should be idempotent for %q", in)
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	w := NewBinaryWriter(64)
	w.WriteU8(7).WriteU32(12345).WriteU64(9876543210).WriteBytes([]byte{1, 2, 3}).WritePath("a/b/ünïcode.h")

	r := NewBinaryReader(w.Bytes())
	u8, err := r.ReadU8()
	assert.NoError(t, err)
	assert.EqualValues(t, 7, u8)

	u32, err := r.ReadU32()
	assert.NoError(t, err)
	assert.EqualValues(t, 12345, u32)

	u64, err := r.ReadU64()
	assert.NoError(t, err)
	assert.EqualValues(t, 9876543210, u64)

	bs, err := r.ReadBytes()
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, bs)

	p, err := r.ReadPath()
	assert.NoError(t, err)
	assert.Equal(t, "a/b/ünïcode.h", p)

	assert.False(t, r.Remaining())
}

func TestBinaryReaderTruncated(t *testing.T) {
	r := NewBinaryReader([]byte{1, 2})
	_, err := r.ReadU64()
	assert.Error(t, err)
}
