package unit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTargetNameValid(t *testing.T) {
	n, err := ParseTargetName("pkg::lib")
	require.NoError(t, err)
	assert.Equal(t, "pkg", n.Package)
	assert.Equal(t, "lib", n.Target)
	assert.Equal(t, "pkg::lib", n.String())
}

func TestParseTargetNameInvalid(t *testing.T) {
	for _, bad := range []string{"pkg::", "::lib", "pkg:lib", "", "pkg::a::b"} {
		_, err := ParseTargetName(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}
