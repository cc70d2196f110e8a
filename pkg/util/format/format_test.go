package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatBytes(t *testing.T) {
	require.Equal(t, "512B", FormatBytes(512))
	require.Equal(t, "4KB", FormatBytes(4096))
	require.Equal(t, "1.50MB", FormatBytes(3<<19))
	require.Equal(t, "2GB", FormatBytes(2<<30))
}

func TestParseBytes(t *testing.T) {
	for in, want := range map[string]uint64{
		"512":   512,
		"0x200": 512,
		"4KB":   4096,
		"4kb":   4096,
		"2MB":   2 << 20,
		"1GB":   1 << 30,
		"10B":   10,
	} {
		got, err := ParseBytes(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseBytes("")
	require.Error(t, err)
	_, err = ParseBytes("lots")
	require.Error(t, err)
}
