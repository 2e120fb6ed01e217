package cardgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratePAN(t *testing.T) {
	t.Run("luhn check digit", func(t *testing.T) {
		pan, err := GeneratePAN("421234", 16, -1)
		require.NoError(t, err)
		require.Len(t, pan, 16)
		require.True(t, strings.HasPrefix(pan, "421234"))
		require.True(t, LuhnValid(pan))
	})

	t.Run("forced last digit", func(t *testing.T) {
		for d := 0; d <= 9; d++ {
			pan, err := GeneratePAN("42123400", 19, d)
			require.NoError(t, err)
			require.Len(t, pan, 19)
			require.Equal(t, byte('0'+d), pan[len(pan)-1])
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := GeneratePAN("42", 16, -1)
		require.Error(t, err)
		_, err = GeneratePAN("421234", 13, -1)
		require.Error(t, err)
		_, err = GeneratePAN("42a234", 16, -1)
		require.Error(t, err)
	})
}

func TestLastFour(t *testing.T) {
	n, err := LastFour("2222405343248877")
	require.NoError(t, err)
	require.Equal(t, 8877, n)

	n, err = LastFour("22224053432400042")
	require.NoError(t, err)
	require.Equal(t, 42, n)

	_, err = LastFour("123")
	require.Error(t, err)
	_, err = LastFour("12345x78")
	require.Error(t, err)
}

func TestMaskPAN(t *testing.T) {
	require.Equal(t, "222240******8877", MaskPAN("2222405343248877"))
	require.Equal(t, "****5678", MaskPAN("12345678"))
	require.Equal(t, "***", MaskPAN("123"))
	require.Equal(t, "", MaskPAN("  "))
}

func TestIsDigits(t *testing.T) {
	require.True(t, IsDigits("0123456789"))
	require.False(t, IsDigits(""))
	require.False(t, IsDigits("12 34"))
	require.False(t, IsDigits("١٢٣")) // non-ASCII digits are rejected
}
