// Package repotest holds behaviour checks shared by every registry.Repository
// backend.
package repotest

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-registry/pkg/registry"
)

// Factory returns an empty repository for a single subtest.
type Factory func(t *testing.T) registry.Repository

func addr(n byte) common.Address {
	var a common.Address
	a[common.AddressLength-1] = n
	return a
}

func seedContent(t *testing.T, repo registry.Repository, id uint64, creator common.Address, tags ...string) {
	t.Helper()
	err := repo.CreateContent(context.Background(), &registry.Content{
		ID:          id,
		Creator:     creator,
		ContentHash: "QmHash",
		Title:       "Title",
		Tags:        tags,
		Price:       100,
	})
	require.NoError(t, err)
}

func seedProposal(t *testing.T, repo registry.Repository, id uint64) {
	t.Helper()
	err := repo.CreateProposal(context.Background(), &registry.Proposal{
		ID:          id,
		Proposer:    addr(1),
		Description: "Lower fees",
	})
	require.NoError(t, err)
}

// Run exercises the Repository contract against a backend.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	t.Run("ContentRoundTrip", func(t *testing.T) {
		repo := newRepo(t)
		seedContent(t, repo, 1, addr(2), "music", "live")

		got, err := repo.GetContent(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), got.ID)
		assert.Equal(t, addr(2), got.Creator)
		assert.Equal(t, "QmHash", got.ContentHash)
		assert.Equal(t, []string{"music", "live"}, got.Tags)
		assert.Equal(t, uint64(100), got.Price)
		assert.Zero(t, got.Views)

		count, err := repo.CountContents(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)
	})

	t.Run("MaxPrice", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.CreateContent(ctx, &registry.Content{
			ID:          1,
			Creator:     addr(2),
			ContentHash: "QmHash",
			Title:       "Title",
			Price:       registry.MaxPrice,
		}))

		got, err := repo.GetContent(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, registry.MaxPrice, got.Price)
	})

	t.Run("ContentNotFound", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetContent(ctx, 7)
		assert.ErrorIs(t, err, registry.ErrContentNotFound)
		assert.ErrorIs(t, repo.IncrementViews(ctx, 7), registry.ErrContentNotFound)
	})

	t.Run("EmptyTags", func(t *testing.T) {
		repo := newRepo(t)
		seedContent(t, repo, 1, addr(2))

		got, err := repo.GetContent(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, got.Tags)
	})

	t.Run("IncrementViews", func(t *testing.T) {
		repo := newRepo(t)
		seedContent(t, repo, 1, addr(2))

		require.NoError(t, repo.IncrementViews(ctx, 1))
		require.NoError(t, repo.IncrementViews(ctx, 1))

		got, err := repo.GetContent(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), got.Views)
	})

	t.Run("ListContentsFilters", func(t *testing.T) {
		repo := newRepo(t)
		seedContent(t, repo, 1, addr(2), "music")
		seedContent(t, repo, 2, addr(3), "video")
		seedContent(t, repo, 3, addr(2), "video", "music")

		all, err := repo.ListContents(ctx, registry.ListContentsParams{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, uint64(1), all[0].ID)
		assert.Equal(t, uint64(3), all[2].ID)

		creator := addr(2)
		byCreator, err := repo.ListContents(ctx, registry.ListContentsParams{Creator: &creator})
		require.NoError(t, err)
		require.Len(t, byCreator, 2)

		tag := "video"
		byTag, err := repo.ListContents(ctx, registry.ListContentsParams{Tag: &tag})
		require.NoError(t, err)
		require.Len(t, byTag, 2)
		assert.Equal(t, uint64(2), byTag[0].ID)

		both, err := repo.ListContents(ctx, registry.ListContentsParams{Creator: &creator, Tag: &tag})
		require.NoError(t, err)
		require.Len(t, both, 1)
		assert.Equal(t, uint64(3), both[0].ID)

		page, err := repo.ListContents(ctx, registry.ListContentsParams{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, uint64(2), page[0].ID)
	})

	t.Run("RatingOncePerRater", func(t *testing.T) {
		repo := newRepo(t)
		seedContent(t, repo, 1, addr(2))

		rating, err := repo.GetUserRating(ctx, 1, addr(3))
		require.NoError(t, err)
		assert.Zero(t, rating)

		require.NoError(t, repo.AddRating(ctx, 1, addr(3), 4))
		require.NoError(t, repo.AddRating(ctx, 1, addr(4), 2))
		assert.ErrorIs(t, repo.AddRating(ctx, 1, addr(3), 5), registry.ErrAlreadyRated)

		rating, err = repo.GetUserRating(ctx, 1, addr(3))
		require.NoError(t, err)
		assert.Equal(t, uint8(4), rating)

		got, err := repo.GetContent(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(6), got.TotalRating)
		assert.Equal(t, uint64(2), got.TotalReviews)
	})

	t.Run("ProposalLifecycle", func(t *testing.T) {
		repo := newRepo(t)
		seedProposal(t, repo, 1)

		voted, err := repo.HasVoted(ctx, 1, addr(4))
		require.NoError(t, err)
		assert.False(t, voted)

		require.NoError(t, repo.AddVote(ctx, 1, addr(4)))
		assert.ErrorIs(t, repo.AddVote(ctx, 1, addr(4)), registry.ErrAlreadyVoted)

		voted, err = repo.HasVoted(ctx, 1, addr(4))
		require.NoError(t, err)
		assert.True(t, voted)

		require.NoError(t, repo.MarkExecuted(ctx, 1))
		assert.ErrorIs(t, repo.MarkExecuted(ctx, 1), registry.ErrAlreadyExecuted)

		got, err := repo.GetProposal(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), got.Votes)
		assert.True(t, got.Executed)
		assert.Equal(t, "Lower fees", got.Description)

		count, err := repo.CountProposals(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)

		_, err = repo.GetProposal(ctx, 2)
		assert.ErrorIs(t, err, registry.ErrProposalNotFound)
	})

	t.Run("ListProposals", func(t *testing.T) {
		repo := newRepo(t)
		seedProposal(t, repo, 1)
		seedProposal(t, repo, 2)

		proposals, err := repo.ListProposals(ctx)
		require.NoError(t, err)
		require.Len(t, proposals, 2)
		assert.Equal(t, uint64(2), proposals[1].ID)
	})

	t.Run("MembersKeepDuplicates", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.AddMember(ctx, addr(4)))
		require.NoError(t, repo.AddMember(ctx, addr(5)))
		require.NoError(t, repo.AddMember(ctx, addr(4)))

		members, err := repo.ListMembers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []common.Address{addr(4), addr(5), addr(4)}, members)
	})

	t.Run("PauseFlag", func(t *testing.T) {
		repo := newRepo(t)
		paused, err := repo.IsPaused(ctx)
		require.NoError(t, err)
		assert.False(t, paused)

		require.NoError(t, repo.SetPaused(ctx, true))
		paused, err = repo.IsPaused(ctx)
		require.NoError(t, err)
		assert.True(t, paused)

		require.NoError(t, repo.SetPaused(ctx, false))
		paused, err = repo.IsPaused(ctx)
		require.NoError(t, err)
		assert.False(t, paused)
	})
}
