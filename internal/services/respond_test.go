package services

import (
	"context"
	"testing"
	"time"

	"kovan/internal/authz"
	"kovan/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// the in-memory database lives per connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.RoleGroup{},
		&models.Rank{},
		&models.User{},
		&models.Message{},
		&models.MessageReaction{},
		&models.StarredMessage{},
		&models.ReadReceipt{},
		&models.UserTag{},
		&models.Poll{},
		&models.PollOption{},
		&models.PollVote{},
		&models.Event{},
		&models.EventAttendance{},
	))
	return db
}

func seedPoll(t *testing.T, db *gorm.DB, allowCustom bool, closesAt *time.Time) (*models.Poll, []models.PollOption) {
	t.Helper()

	poll := &models.Poll{
		Question:           "Where should the next meeting be?",
		AuthorID:           "author-1",
		AllowCustomOptions: allowCustom,
		ClosesAt:           closesAt,
	}
	require.NoError(t, db.Create(poll).Error)

	options := []models.PollOption{
		{PollID: poll.ID, Text: "Clubhouse"},
		{PollID: poll.ID, Text: "Online"},
	}
	for i := range options {
		require.NoError(t, db.Create(&options[i]).Error)
	}
	return poll, options
}

func seedMessage(t *testing.T, db *gorm.DB, groupID *string) *models.Message {
	t.Helper()

	message := &models.Message{
		Content:  "hello",
		AuthorID: "author-1",
		GroupID:  groupID,
	}
	require.NoError(t, db.Create(message).Error)
	return message
}

// approved builds an approved, rankless session; enough for the global channel
func approved(userID string) authz.AuthContext {
	return authz.AuthContext{UserID: userID, Approved: true}
}

func TestCastVoteReplacesPreviousChoice(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	poll, options := seedPoll(t, db, false, nil)

	_, err := responses.CastVote(ctx, poll.ID, "user-1", options[0].ID)
	require.NoError(t, err)

	// re-voting swaps the choice instead of stacking a second row
	_, err = responses.CastVote(ctx, poll.ID, "user-1", options[1].ID)
	require.NoError(t, err)

	var votes []models.PollVote
	require.NoError(t, db.Where("poll_id = ? AND user_id = ?", poll.ID, "user-1").Find(&votes).Error)
	require.Len(t, votes, 1)
	assert.Equal(t, options[1].ID, votes[0].OptionID)
}

func TestCastVoteClosedPoll(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))

	closed := time.Now().Add(-time.Hour)
	poll, options := seedPoll(t, db, false, &closed)

	_, err := responses.CastVote(context.Background(), poll.ID, "user-1", options[0].ID)
	assert.True(t, authz.IsPolicy(err))
}

func TestCastVoteForeignOption(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	pollA, _ := seedPoll(t, db, false, nil)
	_, optionsB := seedPoll(t, db, false, nil)

	// the option must belong to the poll being voted on
	_, err := responses.CastVote(ctx, pollA.ID, "user-1", optionsB[0].ID)
	assert.True(t, authz.IsNotFound(err))

	_, err = responses.CastVote(ctx, "missing-poll", "user-1", optionsB[0].ID)
	assert.True(t, authz.IsNotFound(err))
}

func TestAddCustomOptionOncePerUser(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	poll, _ := seedPoll(t, db, true, nil)

	option, err := responses.AddCustomOption(ctx, poll.ID, "user-1", "Somewhere else")
	require.NoError(t, err)
	assert.True(t, option.IsCustom)
	require.NotNil(t, option.CreatedByID)
	assert.Equal(t, "user-1", *option.CreatedByID)

	_, err = responses.AddCustomOption(ctx, poll.ID, "user-1", "Yet another place")
	assert.True(t, authz.IsPolicy(err))

	// a different user still has their slot
	_, err = responses.AddCustomOption(ctx, poll.ID, "user-2", "Rooftop")
	assert.NoError(t, err)
}

func TestAddCustomOptionDisallowed(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))

	poll, _ := seedPoll(t, db, false, nil)

	_, err := responses.AddCustomOption(context.Background(), poll.ID, "user-1", "Nope")
	assert.True(t, authz.IsPolicy(err))
}

func TestReactionTripleIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	message := seedMessage(t, db, nil)

	first, err := responses.AddReaction(ctx, approved("user-1"), message.ID, "👍")
	require.NoError(t, err)
	second, err := responses.AddReaction(ctx, approved("user-1"), message.ID, "👍")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// a different emoji from the same user is a distinct reaction
	_, err = responses.AddReaction(ctx, approved("user-1"), message.ID, "🔥")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.MessageReaction{}).
		Where("message_id = ?", message.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestRemoveReaction(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	message := seedMessage(t, db, nil)

	_, err := responses.AddReaction(ctx, approved("user-1"), message.ID, "👍")
	require.NoError(t, err)

	require.NoError(t, responses.RemoveReaction(ctx, approved("user-1"), message.ID, "👍"))

	err = responses.RemoveReaction(ctx, approved("user-1"), message.ID, "👍")
	assert.True(t, authz.IsNotFound(err))
}

func TestStarAndUnstar(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	message := seedMessage(t, db, nil)

	require.NoError(t, responses.Star(ctx, approved("user-1"), message.ID))
	require.NoError(t, responses.Star(ctx, approved("user-1"), message.ID))

	var count int64
	require.NoError(t, db.Model(&models.StarredMessage{}).
		Where("message_id = ? AND user_id = ?", message.ID, "user-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	require.NoError(t, responses.Unstar(ctx, approved("user-1"), message.ID))
	assert.True(t, authz.IsNotFound(responses.Unstar(ctx, approved("user-1"), message.ID)))
}

func TestMarkReadKeepsFirstTimestamp(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	message := seedMessage(t, db, nil)

	require.NoError(t, responses.MarkRead(ctx, approved("user-1"), message.ID))

	var first models.ReadReceipt
	require.NoError(t, db.Where("message_id = ? AND user_id = ?", message.ID, "user-1").First(&first).Error)

	require.NoError(t, responses.MarkRead(ctx, approved("user-1"), message.ID))

	var receipts []models.ReadReceipt
	require.NoError(t, db.Where("message_id = ? AND user_id = ?", message.ID, "user-1").Find(&receipts).Error)
	require.Len(t, receipts, 1)
	assert.True(t, receipts[0].ReadAt.Equal(first.ReadAt))
}

func TestSetAttendanceReplacesPreviousAnswer(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	event := &models.Event{
		Title:       "General assembly",
		EventDate:   time.Now().Add(48 * time.Hour),
		CreatedByID: "author-1",
	}
	require.NoError(t, db.Create(event).Error)

	_, err := responses.SetAttendance(ctx, event.ID, "user-1", models.AttendanceGoing)
	require.NoError(t, err)
	_, err = responses.SetAttendance(ctx, event.ID, "user-1", models.AttendanceMaybe)
	require.NoError(t, err)

	var rows []models.EventAttendance
	require.NoError(t, db.Where("event_id = ? AND user_id = ?", event.ID, "user-1").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.AttendanceMaybe, rows[0].Status)
}

func TestSetAttendanceRejectsPastEvent(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))

	event := &models.Event{
		Title:       "Last year's picnic",
		EventDate:   time.Now().Add(-24 * time.Hour),
		CreatedByID: "author-1",
	}
	require.NoError(t, db.Create(event).Error)

	_, err := responses.SetAttendance(context.Background(), event.ID, "user-1", models.AttendanceGoing)
	assert.True(t, authz.IsPolicy(err))

	var count int64
	require.NoError(t, db.Model(&models.EventAttendance{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSetAttendanceRejectsUnknownStatus(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))

	_, err := responses.SetAttendance(context.Background(), "any", "user-1", models.AttendanceStatus("PERHAPS"))
	assert.True(t, authz.IsPolicy(err))
}

func TestPinIsExclusivePerScope(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	fx := seedTiers(t, db)

	first := seedMessage(t, db, &fx.management.ID)
	second := seedMessage(t, db, &fx.management.ID)
	global := seedMessage(t, db, nil)

	_, err := responses.Pin(ctx, fx.baskan, first.ID)
	require.NoError(t, err)
	// pinning in the global channel must not disturb the group's pin
	_, err = responses.Pin(ctx, fx.baskan, global.ID)
	require.NoError(t, err)

	_, err = responses.Pin(ctx, fx.baskan, second.ID)
	require.NoError(t, err)

	var pinned []models.Message
	require.NoError(t, db.Where("pinned = ? AND group_id = ?", true, fx.management.ID).Find(&pinned).Error)
	require.Len(t, pinned, 1)
	assert.Equal(t, second.ID, pinned[0].ID)

	var globalPinned models.Message
	require.NoError(t, db.Where("pinned = ? AND group_id IS NULL", true).First(&globalPinned).Error)
	assert.Equal(t, global.ID, globalPinned.ID)
}

func TestUnpin(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	message := seedMessage(t, db, nil)

	_, err := responses.Pin(ctx, approved("user-1"), message.ID)
	require.NoError(t, err)
	require.NoError(t, responses.Unpin(ctx, approved("user-1"), message.ID))
	assert.True(t, authz.IsNotFound(responses.Unpin(ctx, approved("user-1"), message.ID)))
}

func TestChatMutationsRespectScopeTiers(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	fx := seedTiers(t, db)
	ctx := context.Background()

	board := seedMessage(t, db, &fx.management.ID)

	// member tier stops at the management scope for every chat mutation,
	// not just for reading
	_, err := responses.Pin(ctx, fx.uye, board.ID)
	assert.True(t, authz.IsDenied(err))
	_, err = responses.AddReaction(ctx, fx.uye, board.ID, "👍")
	assert.True(t, authz.IsDenied(err))
	assert.True(t, authz.IsDenied(responses.Star(ctx, fx.uye, board.ID)))
	assert.True(t, authz.IsDenied(responses.MarkRead(ctx, fx.uye, board.ID)))
	assert.True(t, authz.IsDenied(responses.MarkRead(ctx, fx.rankless, board.ID)))

	// a denied pin attempt must not clear the scope's standing pin
	_, err = responses.Pin(ctx, fx.baskan, board.ID)
	require.NoError(t, err)
	second := seedMessage(t, db, &fx.management.ID)
	_, err = responses.Pin(ctx, fx.uye, second.ID)
	assert.True(t, authz.IsDenied(err))

	var pinned models.Message
	require.NoError(t, db.Where("pinned = ? AND group_id = ?", true, fx.management.ID).First(&pinned).Error)
	assert.Equal(t, board.ID, pinned.ID)

	var count int64
	require.NoError(t, db.Model(&models.MessageReaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCastVoteLosingRacerGetsPolicyError(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	poll, options := seedPoll(t, db, false, nil)
	require.NoError(t, db.Create(&models.PollVote{
		PollID: poll.ID, UserID: "user-1", OptionID: options[1].ID,
	}).Error)

	// slip a competing vote in right before the insert, the way a racing
	// writer that won the unique index would
	raced := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("competing_vote", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.PollVote); !ok || raced {
			return
		}
		raced = true
		tx.Session(&gorm.Session{NewDB: true}).Create(&models.PollVote{
			PollID: poll.ID, UserID: "user-1", OptionID: options[1].ID,
		})
	}))
	defer db.Callback().Create().Remove("competing_vote")

	_, err := responses.CastVote(ctx, poll.ID, "user-1", options[0].ID)
	require.True(t, raced)
	assert.True(t, authz.IsPolicy(err))

	// the loser's transaction rolled back whole; the earlier choice stands
	var votes []models.PollVote
	require.NoError(t, db.Where("poll_id = ? AND user_id = ?", poll.ID, "user-1").Find(&votes).Error)
	require.Len(t, votes, 1)
	assert.Equal(t, options[1].ID, votes[0].OptionID)
}

func TestAddReactionLosingRacerKeepsWinnerRow(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	message := seedMessage(t, db, nil)

	raced := false
	var winner models.MessageReaction
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("competing_reaction", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.MessageReaction); !ok || raced {
			return
		}
		raced = true
		winner = models.MessageReaction{MessageID: message.ID, UserID: "user-1", Emoji: "👍"}
		tx.Session(&gorm.Session{NewDB: true}).Create(&winner)
	}))
	defer db.Callback().Create().Remove("competing_reaction")

	// the loser recovers by adopting the row that landed first
	reaction, err := responses.AddReaction(ctx, approved("user-1"), message.ID, "👍")
	require.True(t, raced)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, reaction.ID)

	var count int64
	require.NoError(t, db.Model(&models.MessageReaction{}).
		Where("message_id = ?", message.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSetAttendanceLosingRacerGetsPolicyError(t *testing.T) {
	db := newTestDB(t)
	responses := NewResponses(db, authz.NewScopes(db))
	ctx := context.Background()

	event := &models.Event{
		Title:       "General assembly",
		EventDate:   time.Now().Add(48 * time.Hour),
		CreatedByID: "author-1",
	}
	require.NoError(t, db.Create(event).Error)
	require.NoError(t, db.Create(&models.EventAttendance{
		EventID: event.ID, UserID: "user-1", Status: models.AttendanceGoing,
	}).Error)

	raced := false
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("competing_rsvp", func(tx *gorm.DB) {
		if _, ok := tx.Statement.Dest.(*models.EventAttendance); !ok || raced {
			return
		}
		raced = true
		tx.Session(&gorm.Session{NewDB: true}).Create(&models.EventAttendance{
			EventID: event.ID, UserID: "user-1", Status: models.AttendanceGoing,
		})
	}))
	defer db.Callback().Create().Remove("competing_rsvp")

	_, err := responses.SetAttendance(ctx, event.ID, "user-1", models.AttendanceMaybe)
	require.True(t, raced)
	assert.True(t, authz.IsPolicy(err))

	var rows []models.EventAttendance
	require.NoError(t, db.Where("event_id = ? AND user_id = ?", event.ID, "user-1").Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.AttendanceGoing, rows[0].Status)
}
