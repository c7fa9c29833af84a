package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogBufferKeepsMostRecent(t *testing.T) {
	b := NewLogBuffer(3)
	for _, line := range []string{"a", "b", "c", "d", "e"} {
		b.Append(line)
	}

	require.Equal(t, []string{"c", "d", "e"}, b.Snapshot())
}

func TestLogBufferPartial(t *testing.T) {
	b := NewLogBuffer(3)
	b.Append("a")

	require.Equal(t, []string{"a"}, b.Snapshot())
	require.Empty(t, NewLogBuffer(2).Snapshot())
}
