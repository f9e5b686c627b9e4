package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDID(t *testing.T) {
	t.Parallel()

	ok := map[string]string{
		"did:btc-addr:1PgDBPxWJ9uYWRWpyr4ESHkmqEfcEKVKcV": "did:btc-addr:1PgDBPxWJ9uYWRWpyr4ESHkmqEfcEKVKcV",
		"  did:stack:v0:abc  ":                            "did:stack:v0:abc",
		"did:web:example.com%3A8080":                      "did:web:example.com%3A8080",
	}
	for in, want := range ok {
		got, err := NormalizeDID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	bad := []string{
		"",
		"   ",
		"btc-addr:1abc",
		"did:",
		"did:btc-addr",
		"did:btc-addr:",
		"did:BTC:1abc",
		"did:btc-addr:abc:",
		"did:btc-addr:has space",
		"did:btc-addr:" + strings.Repeat("a", maxDIDLength),
	}
	for _, in := range bad {
		_, err := NormalizeDID(in)
		assert.True(t, IsInvalidInput(err), "did %q: got %v", in, err)
	}
}

func TestNormalizeDID_CaseSensitiveID(t *testing.T) {
	t.Parallel()

	a, err := NormalizeDID("did:btc-addr:1Abc")
	require.NoError(t, err)
	b, err := NormalizeDID("did:btc-addr:1abc")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestValidateSecret(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateSecret("abcDEF123-_.~!"))
	assert.NoError(t, ValidateSecret(strings.Repeat("x", maxSecretLength)))

	for _, in := range []string{"", "a b", "a:b", "tab\there", "é", strings.Repeat("x", maxSecretLength+1)} {
		assert.True(t, IsInvalidInput(ValidateSecret(in)), "secret %q", in)
	}
}

func TestSharedSecret_EncodeDecode(t *testing.T) {
	t.Parallel()

	ss := decodeSharedSecret("abcd:")
	assert.Equal(t, SharedSecret{Salt: "abcd"}, ss)
	assert.False(t, ss.IsSet())

	ss = decodeSharedSecret(SharedSecret{Salt: "abcd", Secret: "xyz"}.encode())
	assert.Equal(t, SharedSecret{Salt: "abcd", Secret: "xyz"}, ss)
	assert.True(t, ss.IsSet())
}

func TestErrors_Classification(t *testing.T) {
	t.Parallel()

	assert.True(t, IsAlreadySet(alreadySet("op")))

	cause := assert.AnError
	err := unavailable("op", cause)
	assert.True(t, IsStoreUnavailable(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, err, unavailable("outer", err))
	assert.NoError(t, unavailable("op", nil))

	assert.True(t, IsConflict(ConflictError{Op: "op", Field: "did"}))
	assert.Contains(t, ConflictError{Op: "op", Field: "did"}.Error(), "did")
}
