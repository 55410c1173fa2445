package sso

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCredentialPassword(t *testing.T) {
	cred := NewCredential("8208210000", "s3cret")
	password, err := cred.Password()
	require.NoError(t, err)
	require.Equal(t, "s3cret", password)

	// opening twice must still work
	password, err = cred.Password()
	require.NoError(t, err)
	require.Equal(t, "s3cret", password)

	empty := NewCredential("8208210000", "")
	password, err = empty.Password()
	require.NoError(t, err)
	require.Equal(t, "", password)
}

func TestCredentialNeverLogsPassword(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&out, nil))
	logger.Info("login", "cred", NewCredential("8208210000", "s3cret"))

	logged := out.String()
	require.False(t, strings.Contains(logged, "s3cret"))
	require.False(t, strings.Contains(logged, "8208210000"))
	require.True(t, strings.Contains(logged, "82******00"))
}

func TestMaskSensitive(t *testing.T) {
	testCases := []struct {
		input  string
		expect string
	}{
		{input: "8208210000", expect: "82******00"},
		{input: "abcd", expect: "****"},
		{input: "", expect: ""},
		{input: "中南大学生", expect: "中南*学生"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, MaskSensitive(test.input))
	}
}
