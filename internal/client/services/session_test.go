package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedKeys(t *testing.T, e *env) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, k := range []string{keySessionToken, keySessionExpiry, keySessionSignedIn} {
		v, err := e.repos.Metadata.Get(context.Background(), k)
		require.NoError(t, err)
		if v != nil {
			out[k] = string(v)
		}
	}
	return out
}

func TestRestore_ValidSession(t *testing.T) {
	e := newEnv(t)
	expiry := e.clock.Add(30 * time.Minute)
	e.storeSession(t, "tok-restored", expiry)

	e.sess.Restore(context.Background())

	assert.Equal(t, SignedIn, e.sess.State())
	assert.Equal(t, "tok-restored", e.sess.Token())
	assert.Equal(t, expiry.UnixMilli(), e.sess.Expiry().UnixMilli())
	assert.False(t, e.sess.Usable(), "remote client not ready yet")

	e.sess.MarkClientReady()
	assert.True(t, e.sess.Usable())
	assert.False(t, e.sess.NeedsReauth())
}

func TestRestore_ExpiredSessionIsPurged(t *testing.T) {
	e := newEnv(t)
	e.storeSession(t, "tok-old", e.clock.Add(-time.Second))

	e.sess.Restore(context.Background())

	assert.Equal(t, SignedOut, e.sess.State())
	assert.Equal(t, EndExpired, e.sess.Reason())
	assert.Empty(t, e.sess.Token())
	assert.Empty(t, storedKeys(t, e))
}

func TestRestore_IncompleteSessionIsPurged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.repos.Metadata.Set(ctx, keySessionToken, []byte("tok")))

	e.sess.Restore(ctx)

	assert.Equal(t, SignedOut, e.sess.State())
	assert.Empty(t, storedKeys(t, e))
}

func TestRestore_NothingStored(t *testing.T) {
	e := newEnv(t)
	e.sess.Restore(context.Background())

	assert.Equal(t, SignedOut, e.sess.State())
	assert.Equal(t, EndSignedOut, e.sess.Reason())
}

func TestRequestToken_PersistsSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.sess.RequestToken(ctx, true))

	assert.Equal(t, SignedIn, e.sess.State())
	assert.Equal(t, "tok-1", e.sess.Token())
	assert.Equal(t, 1, e.prov.interactive)
	assert.Equal(t, map[string]string{
		keySessionToken:    "tok-1",
		keySessionExpiry:   strconv.FormatInt(e.clock.Add(time.Hour).UnixMilli(), 10),
		keySessionSignedIn: "true",
	}, storedKeys(t, e))
}

func TestRequestToken_DefaultsExpiry(t *testing.T) {
	e := newEnv(t)
	e.prov.now = func() time.Time { return time.Time{}.Add(-time.Hour) }

	require.NoError(t, e.sess.RequestToken(context.Background(), false))
	assert.Equal(t, e.clock.Add(defaultTokenLifetime), e.sess.Expiry())
}

func TestRequestToken_FailureClearsSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.storeSession(t, "tok-restored", e.clock.Add(time.Hour))
	e.sess.Restore(ctx)

	boom := errors.New("access_denied")
	e.prov.errs = []error{boom}

	require.ErrorIs(t, e.sess.RequestToken(ctx, true), boom)
	assert.Equal(t, SignedOut, e.sess.State())
	assert.Equal(t, EndAuthFailed, e.sess.Reason())
	assert.Empty(t, e.sess.Token())
	assert.Empty(t, storedKeys(t, e))
}

func TestSignOut_RevokesAndClears(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.sess.RequestToken(ctx, true))
	e.prov.revokeErr = errors.New("network down")

	e.sess.SignOut(ctx)

	assert.Equal(t, []string{"tok-1"}, e.prov.revoked)
	assert.Equal(t, SignedOut, e.sess.State())
	assert.Equal(t, EndRevoked, e.sess.Reason())
	assert.Empty(t, storedKeys(t, e))
}

func TestForceExpire_DoesNotRevoke(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.sess.RequestToken(ctx, true))

	e.sess.ForceExpire(ctx)

	assert.Empty(t, e.prov.revoked)
	assert.Equal(t, SignedOut, e.sess.State())
	assert.Equal(t, EndExpired, e.sess.Reason())
	assert.Empty(t, storedKeys(t, e))
}

func TestNeedsReauth_AfterExpiry(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.sess.RequestToken(ctx, true))
	e.sess.MarkClientReady()
	require.True(t, e.sess.Usable())

	e.clock = e.clock.Add(2 * time.Hour)

	assert.False(t, e.sess.Usable())
	assert.True(t, e.sess.NeedsReauth())
	assert.Equal(t, SignedIn, e.sess.State())
}
