package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-registry/pkg/registry"
	"github.com/tendant/simple-registry/pkg/registry/repo/repotest"
	"github.com/tendant/simple-registry/pkg/registry/repo/sqlite"
)

func openRepository(t *testing.T, path string) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, repo.Close())
	})
	return repo
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open("  ")
	assert.Error(t, err)
}

func TestRepository_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) registry.Repository {
		return openRepository(t, filepath.Join(t.TempDir(), "registry.db"))
	})
}

func TestRepository_ReopenKeepsState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.db")

	repo, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, repo.CreateContent(ctx, &registry.Content{
		ID: 1, ContentHash: "QmHash", Title: "Title", Tags: []string{"a"}, Price: 10,
	}))
	require.NoError(t, repo.SetPaused(ctx, true))
	require.NoError(t, repo.Close())

	reopened := openRepository(t, path)

	content, err := reopened.GetContent(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, content.Tags)

	paused, err := reopened.IsPaused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)
}

func TestRepository_RatingMissingContent(t *testing.T) {
	repo := openRepository(t, filepath.Join(t.TempDir(), "registry.db"))
	err := repo.AddRating(context.Background(), 9, common.Address{1}, 3)
	assert.ErrorIs(t, err, registry.ErrContentNotFound)
}
