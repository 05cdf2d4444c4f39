package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
	})
	return mr
}

func TestAside_FetchesOnceThenServesFromRedis(t *testing.T) {
	mr := withMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedUser) func() error {
		return func() error {
			calls++
			*dest = cachedUser{ID: 1, Username: "abc"}
			return nil
		}
	}

	var first cachedUser
	require.NoError(t, Aside(ctx, UserKey(1), &first, UserTTL, fetch(&first)))
	assert.Equal(t, "abc", first.Username)
	assert.True(t, mr.Exists("user:1"))

	var second cachedUser
	require.NoError(t, Aside(ctx, UserKey(1), &second, UserTTL, fetch(&second)))
	assert.Equal(t, "abc", second.Username)
	assert.Equal(t, 1, calls)

	mr.FastForward(UserTTL + time.Second)
	var third cachedUser
	require.NoError(t, Aside(ctx, UserKey(1), &third, UserTTL, fetch(&third)))
	assert.Equal(t, 2, calls)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := withMiniredis(t)

	var dest cachedUser
	err := Aside(context.Background(), UserKey(2), &dest, UserTTL, func() error {
		return errors.New("not found")
	})
	assert.Error(t, err)
	assert.False(t, mr.Exists("user:2"))
}

func TestAside_WithoutRedisFallsThrough(t *testing.T) {
	SetClient(nil)

	var dest cachedUser
	err := Aside(context.Background(), UserKey(3), &dest, UserTTL, func() error {
		dest = cachedUser{ID: 3}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint(3), dest.ID)
}

func TestInvalidateUser(t *testing.T) {
	mr := withMiniredis(t)
	require.NoError(t, mr.Set("user:4", `{"id":4}`))

	InvalidateUser(context.Background(), 4)
	assert.False(t, mr.Exists("user:4"))
}

func TestInvalidateAllUsers(t *testing.T) {
	mr := withMiniredis(t)
	for _, k := range []string{"user:1", "user:2", "user:30"} {
		require.NoError(t, mr.Set(k, `{}`))
	}
	require.NoError(t, mr.Set("session:abc", "x"))

	require.NoError(t, InvalidateAllUsers(context.Background()))
	assert.False(t, mr.Exists("user:1"))
	assert.False(t, mr.Exists("user:2"))
	assert.False(t, mr.Exists("user:30"))
	assert.True(t, mr.Exists("session:abc"))

	require.NoError(t, InvalidateAllUsers(context.Background()))
}

func TestInvalidateAllUsers_WithoutRedis(t *testing.T) {
	SetClient(nil)
	assert.NoError(t, InvalidateAllUsers(context.Background()))
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	c := NewClient(mr.Addr())
	require.NotNil(t, c)
	_ = c.Close()

	c = NewClient("redis://" + mr.Addr() + "/0")
	require.NotNil(t, c)
	_ = c.Close()

	assert.Nil(t, NewClient("redis://%zz"))
}
