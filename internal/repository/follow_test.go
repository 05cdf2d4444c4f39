package repository

import (
	"context"
	"testing"

	"kinship/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowRepository_CreateAndConstraints(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")

	require.NoError(t, repo.Create(ctx, &models.Follow{FollowBelongsToUserID: a.ID, FollowerUserID: b.ID}))

	err := repo.Create(ctx, &models.Follow{FollowBelongsToUserID: a.ID, FollowerUserID: b.ID})
	assert.True(t, models.IsCode(err, models.CodeConflict), "duplicate edge: %v", err)

	err = repo.Create(ctx, &models.Follow{FollowBelongsToUserID: a.ID, FollowerUserID: a.ID})
	assert.True(t, models.IsCode(err, models.CodeValidation), "self edge: %v", err)

	var count int64
	db.Model(&models.Follow{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestFollowRepository_Queries(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewFollowRepository(db)
	ctx := context.Background()

	a := createUser(t, db, "a")
	b := createUser(t, db, "b")
	c := createUser(t, db, "c")

	require.NoError(t, repo.Create(ctx, &models.Follow{FollowBelongsToUserID: a.ID, FollowerUserID: b.ID}))
	require.NoError(t, repo.Create(ctx, &models.Follow{FollowBelongsToUserID: a.ID, FollowerUserID: c.ID}))
	require.NoError(t, repo.Create(ctx, &models.Follow{FollowBelongsToUserID: c.ID, FollowerUserID: b.ID}))

	exists, err := repo.Exists(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, exists, "edges are directed")

	ids, err := repo.FollowingIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{b.ID, c.ID}, ids)

	counts, err := repo.Counts(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowCounts{Followers: 2, Following: 0}, counts)

	counts, err = repo.Counts(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FollowCounts{Followers: 0, Following: 2}, counts)
}
