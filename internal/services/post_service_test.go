package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Glaucio24/Redtea/internal/models"
)

func newTestPost(t *testing.T, svc *MemoryPostService, authorID string) *models.Post {
	t.Helper()
	post, err := svc.Create(context.Background(), authorID, &models.CreatePostRequest{
		Name: "Alex",
		Age:  29,
		City: "Austin",
		Text: "Great conversation, showed up on time.",
	})
	require.NoError(t, err)
	return post
}

// tally recounts the vote records for a post so tests can check the
// stored counters against the source of truth.
func tally(t *testing.T, svc *MemoryPostService, postID string) (green, red int) {
	t.Helper()
	votes, err := svc.VotersForPost(context.Background(), postID)
	require.NoError(t, err)
	for _, v := range votes {
		if v.Choice == models.VoteGreen {
			green++
		} else {
			red++
		}
	}
	return green, red
}

func TestCastVote(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryPostService(nil, nil, nil)
	post := newTestPost(t, svc, "author")

	voted, err := svc.CastVote(ctx, post.ID, "voter1", models.VoteGreen)
	require.NoError(t, err)
	assert.Equal(t, 1, voted.GreenFlags)
	assert.Equal(t, 0, voted.RedFlags)

	// Same voter switching sides moves the count, it does not add.
	voted, err = svc.CastVote(ctx, post.ID, "voter1", models.VoteRed)
	require.NoError(t, err)
	assert.Equal(t, 0, voted.GreenFlags)
	assert.Equal(t, 1, voted.RedFlags)

	// A second voter is independent.
	voted, err = svc.CastVote(ctx, post.ID, "voter2", models.VoteRed)
	require.NoError(t, err)
	assert.Equal(t, 0, voted.GreenFlags)
	assert.Equal(t, 2, voted.RedFlags)

	green, red := tally(t, svc, post.ID)
	assert.Equal(t, voted.GreenFlags, green)
	assert.Equal(t, voted.RedFlags, red)
}

func TestCastVoteRetraction(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryPostService(nil, nil, nil)
	post := newTestPost(t, svc, "author")

	_, err := svc.CastVote(ctx, post.ID, "voter1", models.VoteGreen)
	require.NoError(t, err)

	// Empty choice retracts the existing vote.
	voted, err := svc.CastVote(ctx, post.ID, "voter1", "")
	require.NoError(t, err)
	assert.Equal(t, 0, voted.GreenFlags)
	assert.Equal(t, 0, voted.RedFlags)

	votes, err := svc.VotersForPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, votes)

	// Retracting with no existing vote is a no-op.
	voted, err = svc.CastVote(ctx, post.ID, "voter1", "")
	require.NoError(t, err)
	assert.Equal(t, 0, voted.GreenFlags)
	assert.Equal(t, 0, voted.RedFlags)
}

func TestCastVoteRepeatSameChoice(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryPostService(nil, nil, nil)
	post := newTestPost(t, svc, "author")

	for i := 0; i < 3; i++ {
		voted, err := svc.CastVote(ctx, post.ID, "voter1", models.VoteGreen)
		require.NoError(t, err)
		assert.Equal(t, 1, voted.GreenFlags)
	}

	green, red := tally(t, svc, post.ID)
	assert.Equal(t, 1, green)
	assert.Equal(t, 0, red)
}

func TestCastVoteUnknownPost(t *testing.T) {
	svc := NewMemoryPostService(nil, nil, nil)
	_, err := svc.CastVote(context.Background(), "missing", "voter1", models.VoteGreen)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestReportAndDismiss(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryPostService(nil, nil, nil)
	post := newTestPost(t, svc, "author")

	reported, err := svc.Report(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, reported.IsReported)
	assert.Equal(t, 1, reported.ReportCount)

	// Repeated reports keep counting.
	reported, err = svc.Report(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reported.ReportCount)

	queue, err := svc.ListReported(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, post.ID, queue[0].ID)

	cleared, err := svc.DismissReport(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, cleared.IsReported)
	assert.Equal(t, 0, cleared.ReportCount)

	queue, err = svc.ListReported(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestDeleteRemovesVotesAndComments(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryPostService(nil, nil, nil)
	post := newTestPost(t, svc, "author")
	other := newTestPost(t, svc, "author")

	_, err := svc.CastVote(ctx, post.ID, "voter1", models.VoteGreen)
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, post.ID, "commenter", "Same experience here.")
	require.NoError(t, err)
	_, err = svc.CastVote(ctx, other.ID, "voter1", models.VoteRed)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, post.ID))

	_, err = svc.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = svc.ListComments(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	// The untouched post keeps its vote.
	green, red := tally(t, svc, other.ID)
	assert.Equal(t, 0, green)
	assert.Equal(t, 1, red)

	assert.ErrorIs(t, svc.Delete(ctx, post.ID), ErrPostNotFound)
}

func TestCommentEnrichment(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryUserService(nil, nil)
	author, err := users.UpsertFromIdentityEvent(ctx, "user_author", "a@example.com", "Ana", "")
	require.NoError(t, err)

	svc := NewMemoryPostService(users, nil, nil)
	post := newTestPost(t, svc, author.ID)

	comment, err := svc.AddComment(ctx, post.ID, author.ID, "Adding context.")
	require.NoError(t, err)
	assert.Equal(t, author.Pseudonym, comment.UserPseudonym)

	// Comments by users no longer in the directory fall back to Anonymous.
	_, err = svc.AddComment(ctx, post.ID, "gone", "Drive-by comment.")
	require.NoError(t, err)

	comments, err := svc.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	for _, c := range comments {
		if c.UserID == "gone" {
			assert.Equal(t, "Anonymous", c.UserPseudonym)
		} else {
			assert.Equal(t, author.Pseudonym, c.UserPseudonym)
		}
	}

	got, err := svc.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RepliesCount)
	assert.Equal(t, author.Pseudonym, got.CreatorPseudonym)
}

func TestDeleteCommentsByUser(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryPostService(nil, nil, nil)
	post := newTestPost(t, svc, "author")

	_, err := svc.AddComment(ctx, post.ID, "leaver", "First.")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, post.ID, "leaver", "Second.")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, post.ID, "stayer", "Third.")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCommentsByUser(ctx, "leaver"))

	comments, err := svc.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "stayer", comments[0].UserID)
}

func TestListByUser(t *testing.T) {
	ctx := context.Background()
	svc := NewMemoryPostService(nil, nil, nil)
	mine := newTestPost(t, svc, "me")
	newTestPost(t, svc, "someone-else")

	posts, err := svc.ListByUser(ctx, "me")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, mine.ID, posts[0].ID)

	feed, err := svc.Feed(ctx)
	require.NoError(t, err)
	assert.Len(t, feed, 2)
}
