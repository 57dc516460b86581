package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirinaja/backoffice/internal/domain"
)

func sample() Session {
	id := domain.StoreID(7)
	return Session{
		Username: "owner",
		Role:     "admin",
		StoreID:  &id,
		Stores: []domain.Store{
			{ID: 7, Name: "Toko Pusat", Active: true},
			{ID: 9, Name: "Cabang Depok", Active: true},
		},
	}
}

func TestParseVerifiedToken(t *testing.T) {
	token, err := Sign("s3cret-value", sample(), time.Hour)
	require.NoError(t, err)

	s, err := NewParser("s3cret-value").Parse("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "owner", s.Username)
	assert.Equal(t, "admin", s.Role)
	require.NotNil(t, s.StoreID)
	assert.Equal(t, domain.StoreID(7), *s.StoreID)
	assert.Len(t, s.Stores, 2)
	assert.Equal(t, token, s.Token)

	ctx := s.StoreContext()
	assert.Equal(t, domain.StoreID(7), *ctx.Current())
	assert.NoError(t, ctx.Switch(9))
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := Sign("s3cret-value", sample(), time.Hour)
	require.NoError(t, err)

	_, err = NewParser("other-secret").Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseUnverifiedStillChecksExpiry(t *testing.T) {
	token, err := Sign("whatever", sample(), time.Hour)
	require.NoError(t, err)

	p := NewParser("")
	assert.False(t, p.Verifies())
	s, err := p.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "owner", s.Username)

	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = p.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "Bearer ", "not-a-jwt", "a.b.c"} {
		_, err := NewParser("").Parse(raw)
		assert.ErrorIs(t, err, ErrInvalidToken, raw)
	}
}

func TestParseWithoutStore(t *testing.T) {
	s := sample()
	s.StoreID = nil
	token, err := Sign("k", s, time.Hour)
	require.NoError(t, err)

	got, err := NewParser("k").Parse(token)
	require.NoError(t, err)
	assert.Nil(t, got.StoreID)
	assert.Nil(t, got.StoreContext().Current())
}

func TestCacheScopeFollowsUserAndStores(t *testing.T) {
	a := sample()
	assert.Equal(t, "user:owner|role:admin|stores:7,9", a.CacheScope())

	reordered := sample()
	reordered.Stores = []domain.Store{reordered.Stores[1], reordered.Stores[0]}
	reordered.StoreID = nil
	assert.Equal(t, a.CacheScope(), reordered.CacheScope())

	other := sample()
	other.Stores = other.Stores[:1]
	assert.NotEqual(t, a.CacheScope(), other.CacheScope())

	other = sample()
	other.Username = "kasir"
	assert.NotEqual(t, a.CacheScope(), other.CacheScope())
}
