package authz

import (
	"context"
	"errors"
	"testing"

	"kovan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	ranks  map[string]*models.Rank
	groups []models.RoleGroup
	err    error
}

func (d *fakeDirectory) FindRankByName(_ context.Context, name string) (*models.Rank, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.ranks[name], nil
}

func (d *fakeDirectory) ListGroups(_ context.Context) ([]models.RoleGroup, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.groups, nil
}

func groupOfOrder(order int) *models.RoleGroup {
	return &models.RoleGroup{Order: order}
}

func TestResolveUserTier(t *testing.T) {
	dir := &fakeDirectory{ranks: map[string]*models.Rank{
		"BASKAN": {Name: "BASKAN", Group: groupOfOrder(TierManagement)},
		"UYE":    {Name: "UYE", Group: groupOfOrder(TierMember)},
		"ADAY":   {Name: "ADAY", Group: groupOfOrder(TierCandidate)},
		"MISAFIR": {Name: "MISAFIR"}, // rank without a group
	}}
	resolver := NewResolver(dir)
	ctx := context.Background()

	name := "UYE"
	tier, err := resolver.ResolveUserTier(ctx, &name)
	require.NoError(t, err)
	assert.Equal(t, Ranked(TierMember), tier)

	name = "ADAY"
	tier, err = resolver.ResolveUserTier(ctx, &name)
	require.NoError(t, err)
	// order 0 is an ordered tier, distinct from unranked
	assert.True(t, tier.Ranked)
	assert.Equal(t, TierCandidate, tier.Order)
}

func TestResolveUserTierUnranked(t *testing.T) {
	dir := &fakeDirectory{ranks: map[string]*models.Rank{
		"MISAFIR": {Name: "MISAFIR"},
	}}
	resolver := NewResolver(dir)
	ctx := context.Background()

	// nil rank name
	tier, err := resolver.ResolveUserTier(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, Unranked, tier)

	// unknown rank name
	name := "YOK"
	tier, err = resolver.ResolveUserTier(ctx, &name)
	require.NoError(t, err)
	assert.Equal(t, Unranked, tier)

	// rank exists but owns no group
	name = "MISAFIR"
	tier, err = resolver.ResolveUserTier(ctx, &name)
	require.NoError(t, err)
	assert.Equal(t, Unranked, tier)
}

func TestResolveUserTierStorageFailure(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("connection reset")}
	resolver := NewResolver(dir)

	name := "UYE"
	tier, err := resolver.ResolveUserTier(context.Background(), &name)

	// A lookup failure must surface as an error, never as an allow.
	require.Error(t, err)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.False(t, tier.Ranked)
}

func TestRanklessScenario(t *testing.T) {
	// Rank with no group: denied for every ordered scope, global still open.
	resolver := NewResolver(&fakeDirectory{ranks: map[string]*models.Rank{
		"MISAFIR": {Name: "MISAFIR"},
	}})
	name := "MISAFIR"
	tier, err := resolver.ResolveUserTier(context.Background(), &name)
	require.NoError(t, err)

	for _, order := range []int{TierCandidate, TierMember, TierManagement} {
		assert.False(t, CanAccessScope(order, tier))
	}
	assert.True(t, CanAccessGlobal(AuthContext{UserID: "u1", Rutbe: &name, Approved: true}))
}
