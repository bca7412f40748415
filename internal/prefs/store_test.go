package prefs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskSecret(t *testing.T) {
	require.Equal(t, "", maskSecret(""))
	require.Equal(t, "********", maskSecret("short"))
	require.Equal(t, "********", maskSecret("12345678"))
	require.Equal(t, "gsk_****6789", maskSecret("gsk_abcdef123456789"))
}
