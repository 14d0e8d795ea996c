package services

import (
	"context"
	"testing"

	"kovan/internal/authz"
	"kovan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type tierFixture struct {
	management *models.RoleGroup
	member     *models.RoleGroup
	candidate  *models.RoleGroup
	baskan     authz.AuthContext
	uye        authz.AuthContext
	aday       authz.AuthContext
	rankless   authz.AuthContext
}

func seedTiers(t *testing.T, db *gorm.DB) tierFixture {
	t.Helper()

	management := &models.RoleGroup{Name: "Yönetim", Order: 2}
	member := &models.RoleGroup{Name: "Üye", Order: 1}
	candidate := &models.RoleGroup{Name: "Aday", Order: 0}
	for _, group := range []*models.RoleGroup{management, member, candidate} {
		require.NoError(t, db.Create(group).Error)
	}

	ranks := []models.Rank{
		{Name: "BASKAN", GroupID: &management.ID},
		{Name: "UYE", GroupID: &member.ID},
		{Name: "ADAY", GroupID: &candidate.ID},
		{Name: "MISAFIR"}, // no group, resolves to no tier
	}
	for i := range ranks {
		require.NoError(t, db.Create(&ranks[i]).Error)
	}

	auth := func(userID string, rank string) authz.AuthContext {
		ctx := authz.AuthContext{UserID: userID, Approved: true}
		if rank != "" {
			ctx.Rutbe = &rank
		}
		return ctx
	}

	return tierFixture{
		management: management,
		member:     member,
		candidate:  candidate,
		baskan:     auth("user-baskan", "BASKAN"),
		uye:        auth("user-uye", "UYE"),
		aday:       auth("user-aday", "ADAY"),
		rankless:   auth("user-misafir", ""),
	}
}

func TestPostRespectsScopeTiers(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessages(db, authz.NewScopes(db))
	fx := seedTiers(t, db)
	ctx := context.Background()

	// member rank cannot enter the management scope
	_, err := messages.Post(ctx, fx.uye, PostMessageInput{Content: "hi", GroupID: &fx.management.ID})
	assert.True(t, authz.IsDenied(err))

	// the management scope admits only the exact top order
	_, err = messages.Post(ctx, fx.baskan, PostMessageInput{Content: "toplantı", GroupID: &fx.management.ID})
	require.NoError(t, err)

	// higher ranks reach downward into lower scopes
	_, err = messages.Post(ctx, fx.baskan, PostMessageInput{Content: "duyuru", GroupID: &fx.candidate.ID})
	require.NoError(t, err)

	// rankless users get the global channel only
	_, err = messages.Post(ctx, fx.rankless, PostMessageInput{Content: "selam"})
	require.NoError(t, err)
	_, err = messages.Post(ctx, fx.rankless, PostMessageInput{Content: "?", GroupID: &fx.candidate.ID})
	assert.True(t, authz.IsDenied(err))
}

func TestPostRequiresApprovedMembership(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessages(db, authz.NewScopes(db))

	pending := authz.AuthContext{UserID: "user-pending", Approved: false}
	_, err := messages.Post(context.Background(), pending, PostMessageInput{Content: "hello"})
	assert.True(t, authz.IsDenied(err))
}

func TestPostReplyAndTags(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessages(db, authz.NewScopes(db))
	fx := seedTiers(t, db)
	ctx := context.Background()

	parent, err := messages.Post(ctx, fx.uye, PostMessageInput{Content: "parent"})
	require.NoError(t, err)

	reply, err := messages.Post(ctx, fx.uye, PostMessageInput{
		Content:   "reply",
		ReplyToID: &parent.ID,
		TagIDs:    []string{"user-baskan"},
	})
	require.NoError(t, err)
	require.NotNil(t, reply.ReplyToID)

	tags, err := messages.UnreadTags(ctx, "user-baskan")
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, reply.ID, tags[0].MessageID)

	missing := "00000000-0000-0000-0000-000000000000"
	_, err = messages.Post(ctx, fx.uye, PostMessageInput{Content: "orphan", ReplyToID: &missing})
	assert.True(t, authz.IsNotFound(err))
}

func TestListScopedToGroup(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessages(db, authz.NewScopes(db))
	fx := seedTiers(t, db)
	ctx := context.Background()

	_, err := messages.Post(ctx, fx.uye, PostMessageInput{Content: "in group", GroupID: &fx.member.ID})
	require.NoError(t, err)
	_, err = messages.Post(ctx, fx.uye, PostMessageInput{Content: "global"})
	require.NoError(t, err)

	scoped, total, err := messages.List(ctx, fx.uye, &fx.member.ID, 1, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, scoped, 1)
	assert.Equal(t, "in group", scoped[0].Content)

	_, _, err = messages.List(ctx, fx.aday, &fx.member.ID, 1, 50)
	assert.True(t, authz.IsDenied(err))

	unknown := "00000000-0000-0000-0000-000000000000"
	_, _, err = messages.List(ctx, fx.uye, &unknown, 1, 50)
	assert.True(t, authz.IsNotFound(err))
}

func TestForwardNeedsBothScopes(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessages(db, authz.NewScopes(db))
	fx := seedTiers(t, db)
	ctx := context.Background()

	source, err := messages.Post(ctx, fx.baskan, PostMessageInput{Content: "minutes", GroupID: &fx.management.ID})
	require.NoError(t, err)

	// the requester must be admitted to the source scope too
	_, err = messages.Forward(ctx, fx.uye, source.ID, nil)
	assert.True(t, authz.IsDenied(err))

	forwarded, err := messages.Forward(ctx, fx.baskan, source.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, source.Content, forwarded.Content)
	assert.Nil(t, forwarded.GroupID)
	assert.Equal(t, "user-baskan", forwarded.AuthorID)
}

func TestSearchSpansAccessibleScopes(t *testing.T) {
	db := newTestDB(t)
	messages := NewMessages(db, authz.NewScopes(db))
	fx := seedTiers(t, db)
	ctx := context.Background()

	_, err := messages.Post(ctx, fx.baskan, PostMessageInput{Content: "Budget Review", GroupID: &fx.management.ID})
	require.NoError(t, err)
	_, err = messages.Post(ctx, fx.uye, PostMessageInput{Content: "budget question", GroupID: &fx.member.ID})
	require.NoError(t, err)
	_, err = messages.Post(ctx, fx.uye, PostMessageInput{Content: "budget chatter"})
	require.NoError(t, err)

	// an everywhere-search only surfaces scopes the tier admits
	hits, err := messages.Search(ctx, fx.uye, "BUDGET", nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, hit := range hits {
		if hit.GroupID != nil {
			assert.Equal(t, fx.member.ID, *hit.GroupID)
		}
	}

	_, err = messages.Search(ctx, fx.uye, "   ", nil)
	assert.True(t, authz.IsPolicy(err))

	_, err = messages.Search(ctx, fx.uye, "budget", &fx.management.ID)
	assert.True(t, authz.IsDenied(err))
}

func TestPinnedLookup(t *testing.T) {
	db := newTestDB(t)
	scopes := authz.NewScopes(db)
	messages := NewMessages(db, scopes)
	responses := NewResponses(db, scopes)
	fx := seedTiers(t, db)
	ctx := context.Background()

	posted, err := messages.Post(ctx, fx.uye, PostMessageInput{Content: "rules", GroupID: &fx.member.ID})
	require.NoError(t, err)

	_, err = messages.Pinned(ctx, fx.uye, &fx.member.ID)
	assert.True(t, authz.IsNotFound(err))

	_, err = responses.Pin(ctx, fx.uye, posted.ID)
	require.NoError(t, err)

	pinned, err := messages.Pinned(ctx, fx.uye, &fx.member.ID)
	require.NoError(t, err)
	assert.Equal(t, posted.ID, pinned.ID)
}
