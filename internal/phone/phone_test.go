package phone

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatE164(t *testing.T) {
	require.Equal(t, "+919876543210", FormatE164("9876543210"))
	require.Equal(t, "+919876543210", FormatE164("919876543210"))
	require.Equal(t, "+919876543210", FormatE164("+91 98765 43210"))
	require.Equal(t, "+919876543210", FormatE164("98765-43210"))
}

func TestChatID(t *testing.T) {
	require.Equal(t, "919876543210@c.us", ChatID("9876543210"))
	require.Equal(t, "919876543210@c.us", ChatID("+919876543210"))
}

func TestValid(t *testing.T) {
	require.True(t, Valid("9876543210"))
	require.True(t, Valid("+919876543210"))

	// mobile numbers start 6-9
	require.False(t, Valid("1234567890"))
	require.False(t, Valid("98765"))
	require.False(t, Valid(""))
}
