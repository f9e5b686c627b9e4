package accounts

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"bsso/cmd/identity"
	"bsso/cmd/security/password"
)

type fileConfig struct {
	Accounts []fileAccount `yaml:"accounts"`
}

type fileAccount struct {
	ID           int64  `yaml:"id"`
	Username     string `yaml:"username"`
	DisplayName  string `yaml:"display_name"`
	PasswordHash string `yaml:"password_hash"`
	Disabled     bool   `yaml:"disabled"`
}

type entry struct {
	account Account
	hash    string
}

// FileDirectory is an immutable Directory loaded from YAML.
type FileDirectory struct {
	pw         password.Config
	byUsername map[string]entry // lower-cased username
	byID       map[identity.AccountID]entry
}

// LoadFile reads and parses an accounts file.
func LoadFile(path string, pw password.Config) (*FileDirectory, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 -- path comes from operator config.
	if err != nil {
		return nil, fmt.Errorf("accounts: read file: %w", err)
	}
	return Parse(data, pw)
}

// Parse builds a FileDirectory from YAML. Unknown keys, duplicate ids or
// usernames and non-Argon2id hashes are rejected.
func Parse(data []byte, pw password.Config) (*FileDirectory, error) {
	var cfg fileConfig

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("accounts: parse file: %w", err)
	}

	d := &FileDirectory{
		pw:         pw,
		byUsername: make(map[string]entry, len(cfg.Accounts)),
		byID:       make(map[identity.AccountID]entry, len(cfg.Accounts)),
	}
	for i, a := range cfg.Accounts {
		username := strings.TrimSpace(a.Username)
		key := strings.ToLower(username)
		id := identity.AccountID(a.ID)

		switch {
		case !id.IsSet():
			return nil, fmt.Errorf("accounts: entry %d: id must be positive", i)
		case username == "":
			return nil, fmt.Errorf("accounts: entry %d: empty username", i)
		case !strings.HasPrefix(a.PasswordHash, "$argon2id$"):
			return nil, fmt.Errorf("accounts: entry %d (%s): password_hash is not argon2id", i, username)
		}
		if _, dup := d.byID[id]; dup {
			return nil, fmt.Errorf("accounts: entry %d: duplicate id %d", i, a.ID)
		}
		if _, dup := d.byUsername[key]; dup {
			return nil, fmt.Errorf("accounts: entry %d: duplicate username %q", i, username)
		}

		e := entry{
			account: Account{
				ID:          id,
				Username:    username,
				DisplayName: strings.TrimSpace(a.DisplayName),
				Disabled:    a.Disabled,
			},
			hash: a.PasswordHash,
		}
		d.byID[id] = e
		d.byUsername[key] = e
	}
	return d, nil
}

// Len returns the number of accounts.
func (d *FileDirectory) Len() int { return len(d.byID) }

// Authenticate implements Directory. Usernames match case-insensitively.
func (d *FileDirectory) Authenticate(ctx context.Context, username, pass string) (Account, error) {
	if err := ctx.Err(); err != nil {
		return Account{}, err
	}

	e, ok := d.byUsername[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		d.pw.VerifyDummy(pass)
		return Account{}, ErrInvalidCredentials
	}

	match, err := d.pw.Verify(e.hash, pass)
	if err != nil || !match {
		return Account{}, ErrInvalidCredentials
	}
	if e.account.Disabled {
		return Account{}, ErrAccountDisabled
	}
	return e.account, nil
}

// Exists implements Directory.
func (d *FileDirectory) Exists(ctx context.Context, id identity.AccountID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	e, ok := d.byID[id]
	return ok && !e.account.Disabled, nil
}
