// Package storetest opens throwaway ledgers for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/session"
	"github.com/cleared-dev/ledger/internal/store"
	"github.com/cleared-dev/ledger/internal/tenant"
)

// New opens a fresh SQLite ledger in a temp dir with one tenant and returns
// a session for it. The store is closed when the test ends.
func New(t *testing.T) (*store.Store, session.Session) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "ledger.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	sess, err := tenant.Create(ctx, st, "TEST", "Test Co", "USD")
	require.NoError(t, err)
	sess.UserID = "tester"
	return st, sess
}

// Tenant adds another tenant to st and returns its session.
func Tenant(t *testing.T, st *store.Store, companyCode string) session.Session {
	t.Helper()
	sess, err := tenant.Create(context.Background(), st, companyCode, companyCode, "USD")
	require.NoError(t, err)
	return sess
}
