package services

import (
	"context"
	"testing"

	"kovan/internal/authz"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePollNeedsTwoOptions(t *testing.T) {
	db := newTestDB(t)
	polls := NewPolls(db, authz.NewScopes(db))
	fx := seedTiers(t, db)
	ctx := context.Background()

	_, err := polls.Create(ctx, fx.uye, CreatePollInput{
		Question: "Pick one",
		Options:  []string{"only"},
	})
	assert.True(t, authz.IsPolicy(err))

	// with custom options allowed a short ballot is acceptable
	poll, err := polls.Create(ctx, fx.uye, CreatePollInput{
		Question:           "Suggest a venue",
		Options:            []string{"Clubhouse"},
		AllowCustomOptions: true,
	})
	require.NoError(t, err)
	assert.Len(t, poll.Options, 1)
}

func TestPollScopeGating(t *testing.T) {
	db := newTestDB(t)
	polls := NewPolls(db, authz.NewScopes(db))
	fx := seedTiers(t, db)
	ctx := context.Background()

	created, err := polls.Create(ctx, fx.baskan, CreatePollInput{
		Question: "Board vote",
		GroupID:  &fx.management.ID,
		Options:  []string{"Yes", "No"},
	})
	require.NoError(t, err)

	_, err = polls.Get(ctx, fx.uye, created.ID)
	assert.True(t, authz.IsDenied(err))

	fetched, err := polls.Get(ctx, fx.baskan, created.ID)
	require.NoError(t, err)
	assert.Len(t, fetched.Options, 2)
}

func TestPollResultsTally(t *testing.T) {
	db := newTestDB(t)
	scopes := authz.NewScopes(db)
	polls := NewPolls(db, scopes)
	responses := NewResponses(db, scopes)
	fx := seedTiers(t, db)
	ctx := context.Background()

	poll, err := polls.Create(ctx, fx.uye, CreatePollInput{
		Question: "Where to?",
		Options:  []string{"Clubhouse", "Online"},
	})
	require.NoError(t, err)

	_, err = responses.CastVote(ctx, poll.ID, "user-1", poll.Options[0].ID)
	require.NoError(t, err)
	_, err = responses.CastVote(ctx, poll.ID, "user-2", poll.Options[0].ID)
	require.NoError(t, err)
	// the re-vote moves user-2 to the other option
	_, err = responses.CastVote(ctx, poll.ID, "user-2", poll.Options[1].ID)
	require.NoError(t, err)

	results, err := polls.Results(ctx, fx.uye, poll.ID)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byText := map[string]int64{}
	for _, row := range results {
		byText[row.Text] = row.Votes
	}
	assert.EqualValues(t, 1, byText["Clubhouse"])
	assert.EqualValues(t, 1, byText["Online"])
}
