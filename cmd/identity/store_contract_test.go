package identity

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bsso/cmd/identity/migrations"
)

// Every Store implementation must pass the same cases.
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewInMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			t.Helper()
			db, err := OpenSQLite(filepath.Join(t.TempDir(), "bsso.db"))
			require.NoError(t, err)

			_, err = migrations.Up(context.Background(), db, migrations.SQLite)
			require.NoError(t, err)

			s, err := NewSQLiteStore(db)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, open := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func TestStore_GetOrCreateSalt_Stable(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		salt, present, err := s.GetOrCreateSalt(ctx)
		require.NoError(t, err)
		assert.False(t, present)
		assert.Len(t, salt, 2*SaltBytes)

		again, present, err := s.GetOrCreateSalt(ctx)
		require.NoError(t, err)
		assert.False(t, present)
		assert.Equal(t, salt, again)
	})
}

func TestStore_GetOrCreateSalt_ConcurrentCallersAgree(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		const n = 8
		salts := make([]string, n)
		errs := make([]error, n)

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				salts[i], _, errs[i] = s.GetOrCreateSalt(ctx)
			}(i)
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, salts[0], salts[i])
		}
	})
}

func TestStore_SetSecretOnce(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		require.NoError(t, s.SetSecretOnce(ctx, "s3cret"))

		err := s.SetSecretOnce(ctx, "other")
		require.Error(t, err)
		assert.True(t, IsAlreadySet(err), "got %v", err)

		ss, err := s.SharedSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, "s3cret", ss.Secret)
		assert.Len(t, ss.Salt, 2*SaltBytes)

		_, present, err := s.GetOrCreateSalt(ctx)
		require.NoError(t, err)
		assert.True(t, present)
	})
}

func TestStore_SetSecretOnce_KeepsExistingSalt(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		salt, _, err := s.GetOrCreateSalt(ctx)
		require.NoError(t, err)
		require.NoError(t, s.SetSecretOnce(ctx, "abc"))

		ss, err := s.SharedSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, SharedSecret{Salt: salt, Secret: "abc"}, ss)
	})
}

func TestStore_SetSecretOnce_ConcurrentSingleWinner(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		secrets := []string{"alpha", "bravo", "charlie", "delta"}
		errs := make([]error, len(secrets))

		var wg sync.WaitGroup
		for i := range secrets {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.SetSecretOnce(ctx, secrets[i])
			}(i)
		}
		wg.Wait()

		winner := ""
		for i, err := range errs {
			if err == nil {
				require.Empty(t, winner, "more than one SetSecretOnce succeeded")
				winner = secrets[i]
				continue
			}
			assert.True(t, IsAlreadySet(err), "got %v", err)
		}
		require.NotEmpty(t, winner)

		ss, err := s.SharedSecret(ctx)
		require.NoError(t, err)
		assert.Equal(t, winner, ss.Secret)
	})
}

func TestStore_SetSecretOnce_RejectsInvalid(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		for _, bad := range []string{"", "has space", "a:b"} {
			err := s.SetSecretOnce(ctx, bad)
			assert.True(t, IsInvalidInput(err), "secret %q: got %v", bad, err)
		}

		_, present, err := s.GetOrCreateSalt(ctx)
		require.NoError(t, err)
		assert.False(t, present)
	})
}

func TestStore_SharedSecret_BeforeSaltIsNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		_, err := s.SharedSecret(context.Background())
		assert.True(t, IsNotFound(err), "got %v", err)
	})
}

func TestStore_FindByDID_Unknown(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.FindByDID(ctx, "did:btc-addr:1Unknown")
		assert.True(t, IsNotFound(err), "got %v", err)

		_, err = s.FindByDID(ctx, "")
		assert.True(t, IsInvalidInput(err), "got %v", err)
	})
}

func TestStore_UpsertLink_LastWriterWins(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		did := "did:btc-addr:1PgDBPxWJ9uYWRWpyr4ESHkmqEfcEKVKcV"
		t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		first, err := s.UpsertLink(ctx, UpsertLinkInput{DID: did, AccountID: 42, Now: t0})
		require.NoError(t, err)
		assert.Equal(t, AccountID(42), first.AccountID)
		assert.NotEmpty(t, first.ID)

		name := "  Alice  "
		second, err := s.UpsertLink(ctx, UpsertLinkInput{
			DID:         did,
			AccountID:   43,
			DisplayName: &name,
			Now:         t0.Add(time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, AccountID(43), second.AccountID)
		require.NotNil(t, second.DisplayName)
		assert.Equal(t, "Alice", *second.DisplayName)
		assert.True(t, second.CreatedAt.Equal(t0))
		assert.True(t, second.UpdatedAt.Equal(t0.Add(time.Minute)))

		got, err := s.FindByDID(ctx, did)
		require.NoError(t, err)
		assert.Equal(t, AccountID(43), got.AccountID)

		byAccount, err := s.FindByAccountID(ctx, 43)
		require.NoError(t, err)
		assert.Equal(t, did, byAccount.DID)

		_, err = s.FindByAccountID(ctx, 42)
		assert.True(t, IsNotFound(err), "got %v", err)
	})
}

func TestStore_UpsertLink_DistinctDIDsStayDistinct(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		a, err := s.UpsertLink(ctx, UpsertLinkInput{DID: "did:btc-addr:1A", AccountID: 1})
		require.NoError(t, err)
		b, err := s.UpsertLink(ctx, UpsertLinkInput{DID: "did:btc-addr:1B", AccountID: 2})
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)

		gotA, err := s.FindByDID(ctx, "did:btc-addr:1A")
		require.NoError(t, err)
		assert.Equal(t, AccountID(1), gotA.AccountID)

		gotB, err := s.FindByDID(ctx, "did:btc-addr:1B")
		require.NoError(t, err)
		assert.Equal(t, AccountID(2), gotB.AccountID)
	})
}

func TestStore_UpsertLink_AccountOwnedByOtherDID(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.UpsertLink(ctx, UpsertLinkInput{DID: "did:btc-addr:1A", AccountID: 7})
		require.NoError(t, err)

		_, err = s.UpsertLink(ctx, UpsertLinkInput{DID: "did:btc-addr:1B", AccountID: 7})
		require.Error(t, err)
		var ce ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "account_id", ce.Field)

		_, err = s.FindByDID(ctx, "did:btc-addr:1B")
		assert.True(t, IsNotFound(err), "got %v", err)
	})
}

func TestStore_UpsertLink_UnsetAccountsNeverCollide(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		a, err := s.UpsertLink(ctx, UpsertLinkInput{DID: "did:btc-addr:1A"})
		require.NoError(t, err)
		assert.False(t, a.IsLinked())

		_, err = s.UpsertLink(ctx, UpsertLinkInput{DID: "did:btc-addr:1B"})
		require.NoError(t, err)
	})
}

func TestStore_UpsertLink_RejectsInvalid(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.UpsertLink(ctx, UpsertLinkInput{DID: "bogus", AccountID: 1})
		assert.True(t, IsInvalidInput(err), "got %v", err)

		_, err = s.UpsertLink(ctx, UpsertLinkInput{DID: "did:btc-addr:1A", AccountID: -1})
		assert.True(t, IsInvalidInput(err), "got %v", err)

		_, err = s.FindByAccountID(ctx, 0)
		assert.True(t, IsInvalidInput(err), "got %v", err)
	})
}

func TestStore_SignInFlow(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		did := "did:btc-addr:1Flow"

		// First visit: unknown DID.
		_, err := s.FindByDID(ctx, did)
		require.True(t, IsNotFound(err))

		// Account 5 has no link yet; the caller starts from a blank one.
		_, err = s.FindByAccountID(ctx, 5)
		require.True(t, IsNotFound(err))

		_, err = s.UpsertLink(ctx, UpsertLinkInput{DID: did, AccountID: 5})
		require.NoError(t, err)

		// Next visit resolves straight to the account.
		l, err := s.FindByDID(ctx, " "+did+" ")
		require.NoError(t, err)
		assert.True(t, l.IsLinked())
		assert.Equal(t, AccountID(5), l.AccountID)
	})
}

func TestStore_Ping(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		assert.NoError(t, s.Ping(context.Background()))
	})
}
