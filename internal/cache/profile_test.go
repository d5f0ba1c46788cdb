package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/johndosdos/chatroom/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileStore struct {
	profiles map[string]string
	gets     int
	failPut  bool
}

func (s *profileStore) InsertMessage(context.Context, model.NewMessage) (model.Message, error) {
	return model.Message{}, nil
}

func (s *profileStore) RecentMessages(context.Context, string, int) ([]model.Message, error) {
	return nil, nil
}

func (s *profileStore) GetMessage(context.Context, int64) (model.Message, error) {
	return model.Message{}, nil
}

func (s *profileStore) UpsertReaction(context.Context, int64, string, string) (string, error) {
	return "", nil
}

func (s *profileStore) CountReactions(context.Context, int64, string) (int, error) {
	return 0, nil
}

func (s *profileStore) GetProfile(_ context.Context, nickname string) (string, bool, error) {
	s.gets++
	url, ok := s.profiles[nickname]
	return url, ok, nil
}

func (s *profileStore) UpsertProfile(_ context.Context, nickname, url string) error {
	if s.failPut {
		return errors.New("boom")
	}
	s.profiles[nickname] = url
	return nil
}

// newTestCache requires a running Redis on localhost:6379.
func newTestCache(t *testing.T) (*ProfileCache, *profileStore) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	clean := func() {
		iter := client.Scan(ctx, 0, ProfilePrefix+"test_*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	clean()
	t.Cleanup(func() {
		clean()
		client.Close()
	})

	backing := &profileStore{profiles: map[string]string{}}
	return NewProfileCache(backing, client, time.Minute), backing
}

func TestGetProfile_CachesHits(t *testing.T) {
	c, backing := newTestCache(t)
	ctx := context.Background()
	backing.profiles["test_ann"] = "/a.png"

	for range 3 {
		url, found, err := c.GetProfile(ctx, "test_ann")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "/a.png", url)
	}
	assert.Equal(t, 1, backing.gets)
}

func TestGetProfile_MissIsNotCached(t *testing.T) {
	c, backing := newTestCache(t)
	ctx := context.Background()

	_, found, err := c.GetProfile(ctx, "test_nobody")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, _ = c.GetProfile(ctx, "test_nobody")
	assert.Equal(t, 2, backing.gets)
}

func TestUpsertProfile_RefreshesCache(t *testing.T) {
	c, backing := newTestCache(t)
	ctx := context.Background()
	backing.profiles["test_bob"] = "/old.png"

	_, _, err := c.GetProfile(ctx, "test_bob")
	require.NoError(t, err)

	require.NoError(t, c.UpsertProfile(ctx, "test_bob", "/new.png"))

	url, _, err := c.GetProfile(ctx, "test_bob")
	require.NoError(t, err)
	assert.Equal(t, "/new.png", url)
	assert.Equal(t, 1, backing.gets)
}

func TestUpsertProfile_FailureDropsEntry(t *testing.T) {
	c, backing := newTestCache(t)
	ctx := context.Background()
	backing.profiles["test_cat"] = "/cat.png"

	_, _, err := c.GetProfile(ctx, "test_cat")
	require.NoError(t, err)

	backing.failPut = true
	assert.Error(t, c.UpsertProfile(ctx, "test_cat", "/other.png"))

	_, _, err = c.GetProfile(ctx, "test_cat")
	require.NoError(t, err)
	assert.Equal(t, 2, backing.gets)
}
