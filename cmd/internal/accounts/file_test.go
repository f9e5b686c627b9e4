package accounts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bsso/cmd/identity"
	"bsso/cmd/security/password"
)

func fastPassword() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func mustHash(t *testing.T, pw password.Config, plain string) string {
	t.Helper()
	h, err := pw.Hash(plain)
	require.NoError(t, err)
	return h
}

func writeAccounts(t *testing.T, pw password.Config) string {
	t.Helper()

	data := "accounts:\n" +
		"  - id: 1\n" +
		"    username: Alice\n" +
		"    display_name: Alice A.\n" +
		"    password_hash: " + mustHash(t, pw, "alice-password") + "\n" +
		"  - id: 2\n" +
		"    username: bob\n" +
		"    password_hash: " + mustHash(t, pw, "bob-password") + "\n" +
		"    disabled: true\n"

	path := filepath.Join(t.TempDir(), "accounts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadFile_Authenticate(t *testing.T) {
	pw := fastPassword()
	d, err := LoadFile(writeAccounts(t, pw), pw)
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())

	ctx := context.Background()

	acct, err := d.Authenticate(ctx, "alice", "alice-password")
	require.NoError(t, err)
	assert.Equal(t, identity.AccountID(1), acct.ID)
	assert.Equal(t, "Alice", acct.Username)
	assert.Equal(t, "Alice A.", acct.DisplayName)

	_, err = d.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = d.Authenticate(ctx, "nobody", "alice-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = d.Authenticate(ctx, "bob", "bob-password")
	assert.ErrorIs(t, err, ErrAccountDisabled)

	_, err = d.Authenticate(ctx, "bob", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestFileDirectory_Exists(t *testing.T) {
	pw := fastPassword()
	d, err := LoadFile(writeAccounts(t, pw), pw)
	require.NoError(t, err)

	ctx := context.Background()
	for id, want := range map[identity.AccountID]bool{1: true, 2: false, 3: false} {
		got, err := d.Exists(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got, "account %d", id)
	}
}

func TestParse_Rejects(t *testing.T) {
	pw := fastPassword()
	h := mustHash(t, pw, "some-password")

	cases := map[string]string{
		"unknown key":    "accounts:\n  - id: 1\n    username: a\n    password_hash: " + h + "\n    role: admin\n",
		"zero id":        "accounts:\n  - id: 0\n    username: a\n    password_hash: " + h + "\n",
		"empty username": "accounts:\n  - id: 1\n    username: ' '\n    password_hash: " + h + "\n",
		"plain password": "accounts:\n  - id: 1\n    username: a\n    password_hash: hunter2\n",
		"duplicate id": "accounts:\n  - id: 1\n    username: a\n    password_hash: " + h +
			"\n  - id: 1\n    username: b\n    password_hash: " + h + "\n",
		"duplicate username": "accounts:\n  - id: 1\n    username: a\n    password_hash: " + h +
			"\n  - id: 2\n    username: A\n    password_hash: " + h + "\n",
	}
	for name, data := range cases {
		_, err := Parse([]byte(data), pw)
		assert.Error(t, err, name)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), fastPassword())
	assert.Error(t, err)
}
