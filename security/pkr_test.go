package security_test

import (
	"testing"
	"time"

	"github.com/mycelia-dev/subsystem-kernel/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPKR_RejectsMissingFields(t *testing.T) {
	alloc := security.NewKeyAllocator()
	_, err := security.NewPKR("", "topLevel", alloc.Mint(), security.PKROptions{})
	require.Error(t, err)

	_, err = security.NewPKR("u", "", alloc.Mint(), security.PKROptions{})
	require.Error(t, err)

	_, err = security.NewPKR("u", "topLevel", nil, security.PKROptions{})
	require.Error(t, err)
}

func TestPKR_DefaultExpirationIsOneWeek(t *testing.T) {
	alloc := security.NewKeyAllocator()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pkr, err := security.NewPKR("u", "topLevel", alloc.Mint(), security.PKROptions{
		Now: func() time.Time { return start },
	})
	require.NoError(t, err)
	assert.Equal(t, start.Add(7*24*time.Hour), pkr.ExpiresAt())
}

func TestPKR_InvalidExpirationStringDefaultsToOneWeek(t *testing.T) {
	alloc := security.NewKeyAllocator()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pkr, err := security.NewPKR("u", "topLevel", alloc.Mint(), security.PKROptions{
		Expiration: "not a duration",
		Now:        func() time.Time { return start },
	})
	require.NoError(t, err)
	assert.Equal(t, start.Add(7*24*time.Hour), pkr.ExpiresAt())
}

func TestPKR_ParsesWordQuantityAndAbbreviatedUnit(t *testing.T) {
	alloc := security.NewKeyAllocator()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pkr, err := security.NewPKR("u", "topLevel", alloc.Mint(), security.PKROptions{
		Expiration: "two hrs",
		Now:        func() time.Time { return start },
	})
	require.NoError(t, err)
	assert.Equal(t, start.Add(2*time.Hour), pkr.ExpiresAt())
}

func TestPKR_IsExpired(t *testing.T) {
	alloc := security.NewKeyAllocator()
	pkr, err := security.NewPKR("u", "topLevel", alloc.Mint(), security.PKROptions{Expiration: "1 millisecond"})
	require.NoError(t, err)

	assert.False(t, pkr.IsExpired())
	time.Sleep(10 * time.Millisecond)
	assert.True(t, pkr.IsExpired())
}

func TestPKR_IsValidRequiresMinterAndFreshness(t *testing.T) {
	alloc := security.NewKeyAllocator()
	minter := alloc.Mint()
	pkr, err := security.NewPKR("u", "topLevel", alloc.Mint(), security.PKROptions{Minter: minter})
	require.NoError(t, err)

	assert.True(t, pkr.IsValid(minter))
	assert.False(t, pkr.IsValid(alloc.Mint()))
}

func TestPKR_EqualsComparesUUIDOnly(t *testing.T) {
	alloc := security.NewKeyAllocator()
	a, _ := security.NewPKR("u", "topLevel", alloc.Mint(), security.PKROptions{Name: "a"})
	b, _ := security.NewPKR("u", "resource", alloc.Mint(), security.PKROptions{Name: "b"})
	c, _ := security.NewPKR("other", "topLevel", alloc.Mint(), security.PKROptions{})

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

func TestPKR_ToJSONRoundTripsCoreFields(t *testing.T) {
	alloc := security.NewKeyAllocator()
	pkr, err := security.NewPKR("u", "topLevel", alloc.Mint(), security.PKROptions{Name: "n"})
	require.NoError(t, err)

	j := pkr.ToJSON()
	assert.Equal(t, "u", j.UUID)
	assert.Equal(t, "topLevel", j.Kind)
	assert.Equal(t, "n", j.Name)
	assert.NotEmpty(t, j.ExpiresAt)
}
