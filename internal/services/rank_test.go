package services

import (
	"context"
	"testing"

	"kovan/internal/authz"
	"kovan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRankStoresMatrix(t *testing.T) {
	db := newTestDB(t)
	ranks := NewRanks(db)
	ctx := context.Background()

	var matrix *authz.Matrix
	matrix = matrix.Grant(authz.ResourceMessages, authz.ActionSet{Create: true, Read: true})
	matrix = matrix.Grant(authz.ResourceEvents, authz.ActionSet{Read: true})

	rank, err := ranks.CreateRank(ctx, RankInput{Name: "UYE", Permissions: matrix})
	require.NoError(t, err)

	var stored models.Rank
	require.NoError(t, db.First(&stored, "id = ?", rank.ID).Error)

	decoded, err := MatrixOf(&stored)
	require.NoError(t, err)
	assert.True(t, decoded.Allows(authz.ResourceMessages, authz.ActionCreate))
	assert.True(t, decoded.Allows(authz.ResourceEvents, authz.ActionRead))
	assert.False(t, decoded.Allows(authz.ResourceEvents, authz.ActionDelete))
}

func TestCreateRankDuplicateName(t *testing.T) {
	db := newTestDB(t)
	ranks := NewRanks(db)
	ctx := context.Background()

	_, err := ranks.CreateRank(ctx, RankInput{Name: "UYE"})
	require.NoError(t, err)

	_, err = ranks.CreateRank(ctx, RankInput{Name: "UYE"})
	assert.True(t, authz.IsPolicy(err))
}

func TestDeleteRankRefusesWhileAssigned(t *testing.T) {
	db := newTestDB(t)
	ranks := NewRanks(db)
	ctx := context.Background()

	rank, err := ranks.CreateRank(ctx, RankInput{Name: "UYE"})
	require.NoError(t, err)

	rutbe := "UYE"
	user := &models.User{
		Email:            "uye@example.com",
		Password:         "x",
		Rutbe:            &rutbe,
		MembershipStatus: models.MembershipApproved,
	}
	require.NoError(t, db.Create(user).Error)

	err = ranks.DeleteRank(ctx, rank.ID)
	assert.True(t, authz.IsPolicy(err))

	require.NoError(t, db.Model(user).Update("rutbe", nil).Error)
	require.NoError(t, ranks.DeleteRank(ctx, rank.ID))

	err = ranks.DeleteRank(ctx, rank.ID)
	assert.True(t, authz.IsNotFound(err))
}

func TestDeleteGroupRefusesWhileOwningRanks(t *testing.T) {
	db := newTestDB(t)
	ranks := NewRanks(db)
	ctx := context.Background()

	group, err := ranks.CreateGroup(ctx, GroupInput{Name: "Üye", Order: 1})
	require.NoError(t, err)

	rank, err := ranks.CreateRank(ctx, RankInput{Name: "UYE", GroupID: &group.ID})
	require.NoError(t, err)

	err = ranks.DeleteGroup(ctx, group.ID)
	assert.True(t, authz.IsPolicy(err))

	require.NoError(t, ranks.DeleteRank(ctx, rank.ID))
	require.NoError(t, ranks.DeleteGroup(ctx, group.ID))
}

func TestUpdateRankMovesGroup(t *testing.T) {
	db := newTestDB(t)
	ranks := NewRanks(db)
	scopes := authz.NewScopes(db)
	ctx := context.Background()

	management, err := ranks.CreateGroup(ctx, GroupInput{Name: "Yönetim", Order: 2})
	require.NoError(t, err)
	member, err := ranks.CreateGroup(ctx, GroupInput{Name: "Üye", Order: 1})
	require.NoError(t, err)

	rank, err := ranks.CreateRank(ctx, RankInput{Name: "SAYMAN", GroupID: &member.ID})
	require.NoError(t, err)

	rutbe := rank.Name
	tier, err := scopes.Resolver().ResolveUserTier(ctx, &rutbe)
	require.NoError(t, err)
	assert.Equal(t, authz.Ranked(1), tier)

	// reassigning the group changes the tier the rank resolves to
	_, err = ranks.UpdateRank(ctx, rank.ID, RankInput{Name: rank.Name, GroupID: &management.ID})
	require.NoError(t, err)

	tier, err = scopes.Resolver().ResolveUserTier(ctx, &rutbe)
	require.NoError(t, err)
	assert.Equal(t, authz.Ranked(2), tier)
}
