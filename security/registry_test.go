package security_test

import (
	"testing"
	"time"

	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/message"
	"github.com/mycelia-dev/subsystem-kernel/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubKernel struct {
	sent []string
}

func (k *stubKernel) SendProtected(pkr *security.PKR, msg message.Message, opts map[string]any) error {
	k.sent = append(k.sent, pkr.UUID())
	return nil
}

func newRegistry(t *testing.T) (*security.Registry, *security.Identity, *stubKernel) {
	t.Helper()
	k := &stubKernel{}
	r, id, err := security.New(k)
	require.NoError(t, err)
	return r, id, k
}

func TestRegistry_NewCreatesKernelPrincipalAndIdentity(t *testing.T) {
	r, id, _ := newRegistry(t)
	require.NotNil(t, id)

	p, ok := r.Get(id.PKR().UUID())
	require.True(t, ok)
	assert.Equal(t, security.KindKernel, p.Kind)
	assert.True(t, id.CanRead())
	assert.True(t, id.CanWrite())
	assert.True(t, id.CanGrant())
}

func TestRegistry_RejectsUnknownKind(t *testing.T) {
	r, _, _ := newRegistry(t)
	_, _, err := r.CreatePrincipal("bogus", security.PrincipalOptions{})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestRegistry_RejectsDuplicateKernel(t *testing.T) {
	r, _, _ := newRegistry(t)
	_, _, err := r.CreatePrincipal(security.KindKernel, security.PrincipalOptions{})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.DuplicateKind))
}

func TestRegistry_MintIssuesPrivateKeyOnlyForPrivilegedKinds(t *testing.T) {
	r, _, _ := newRegistry(t)
	_, priv := r.Mint(security.KindTopLevel)
	assert.NotNil(t, priv)

	_, priv = r.Mint(security.KindResource)
	assert.Nil(t, priv)
}

func TestRegistry_CreatePrincipalRecordsUniqueMappings(t *testing.T) {
	r, _, _ := newRegistry(t)
	principal, pkr, err := r.CreatePrincipal(security.KindTopLevel, security.PrincipalOptions{Name: "alice"})
	require.NoError(t, err)

	assert.True(t, r.Has(principal.UUID))
	assert.True(t, r.Has("alice"))
	assert.True(t, r.Has(principal.PublicKey))
	assert.Equal(t, principal.UUID, pkr.UUID())
}

func TestRegistry_GetByPrivateKey(t *testing.T) {
	r, _, _ := newRegistry(t)
	principal, _, err := r.CreatePrincipal(security.KindFriend, security.PrincipalOptions{})
	require.NoError(t, err)
	require.NotNil(t, principal.PrivateKey)

	got, ok := r.Get(principal.PrivateKey)
	require.True(t, ok)
	assert.Equal(t, principal.UUID, got.UUID)
}

func TestRegistry_ResolvePKRReturnsPrivateKey(t *testing.T) {
	r, _, _ := newRegistry(t)
	principal, pkr, err := r.CreatePrincipal(security.KindTopLevel, security.PrincipalOptions{})
	require.NoError(t, err)

	priv := r.ResolvePKR(pkr)
	assert.Equal(t, principal.PrivateKey, priv)
}

func TestRegistry_RefreshPrincipalLeavesFreshPKRUnchanged(t *testing.T) {
	r, _, _ := newRegistry(t)
	principal, pkr, err := r.CreatePrincipal(security.KindTopLevel, security.PrincipalOptions{})
	require.NoError(t, err)

	refreshed, err := r.RefreshPrincipal(principal)
	require.NoError(t, err)
	assert.True(t, pkr.Equals(refreshed))
	assert.Equal(t, pkr.PublicKey(), refreshed.PublicKey())
}

func TestRegistry_RefreshPrincipalMintsNewKeyWhenExpired(t *testing.T) {
	r, _, _ := newRegistry(t)
	principal, oldPKR, err := r.CreatePrincipal(security.KindTopLevel, security.PrincipalOptions{Expiration: "1 millisecond"})
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	newPKR, err := r.RefreshPrincipal(principal)
	require.NoError(t, err)
	assert.NotEqual(t, oldPKR.PublicKey(), newPKR.PublicKey())
	assert.Nil(t, r.ResolvePKR(oldPKR))
}

func TestRegistry_CreateRWSIsCachedPerPrincipal(t *testing.T) {
	r, _, _ := newRegistry(t)
	_, pkr, err := r.CreatePrincipal(security.KindResource, security.PrincipalOptions{})
	require.NoError(t, err)

	a := r.CreateRWS(pkr)
	b := r.CreateRWS(pkr)
	assert.Same(t, a, b)
}

func TestRegistry_CreateFriendIdentityRejectsNonFriend(t *testing.T) {
	r, _, _ := newRegistry(t)
	_, pkr, err := r.CreatePrincipal(security.KindResource, security.PrincipalOptions{})
	require.NoError(t, err)

	_, err = r.CreateFriendIdentity(pkr)
	require.Error(t, err)
}

func TestRegistry_DeleteClearsKernelID(t *testing.T) {
	r, id, _ := newRegistry(t)
	r.Delete(id.PKR().UUID())
	assert.False(t, r.Has(id.PKR().UUID()))

	_, _, err := r.CreatePrincipal(security.KindKernel, security.PrincipalOptions{})
	assert.NoError(t, err)
}

func TestRegistry_ClearRemovesEverything(t *testing.T) {
	r, _, _ := newRegistry(t)
	_, _, err := r.CreatePrincipal(security.KindTopLevel, security.PrincipalOptions{Name: "alice"})
	require.NoError(t, err)

	r.Clear()
	assert.False(t, r.Has("alice"))
}

func TestIdentity_SendProtectedForwardsToKernel(t *testing.T) {
	r, id, k := newRegistry(t)
	_ = r
	err := id.SendProtected(&message.Base{ID: "m", Path: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{id.PKR().UUID()}, k.sent)
}

func TestIdentity_RequireGrantSucceedsForOwner(t *testing.T) {
	r, _, _ := newRegistry(t)
	_, pkr, err := r.CreatePrincipal(security.KindResource, security.PrincipalOptions{})
	require.NoError(t, err)
	id, err := r.CreateIdentity(pkr)
	require.NoError(t, err)

	out, err := id.RequireGrant(func() (any, error) { return "granted", nil })
	require.NoError(t, err)
	assert.Equal(t, "granted", out)

	require.NoError(t, id.GrantReader("reader-uuid"))
}
