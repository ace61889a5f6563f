package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"anoa.com/socialfeed/internal/entity"
	engagementRepo "anoa.com/socialfeed/internal/modules/engagement/repository"
	engagementService "anoa.com/socialfeed/internal/modules/engagement/service"
	"anoa.com/socialfeed/internal/modules/feed/dto"
	feedRepo "anoa.com/socialfeed/internal/modules/feed/repository"
	postDto "anoa.com/socialfeed/internal/modules/post/dto"
	postRepo "anoa.com/socialfeed/internal/modules/post/repository"
	userRepo "anoa.com/socialfeed/internal/modules/user/repository"
	"anoa.com/socialfeed/internal/testutil"
	"anoa.com/socialfeed/pkg/apperror"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newFeed(db *gorm.DB, pageSize int) FeedService {
	return NewFeedService(feedRepo.NewFeedRepository(db), userRepo.NewUserRepository(db), pageSize)
}

func newEngagement(db *gorm.DB, clock *testutil.Clock) engagementService.EngagementService {
	return engagementService.NewEngagementService(
		engagementRepo.NewEngagementRepository(db),
		postRepo.NewPostRepository(db),
		nil, nil,
		engagementService.WithClock(clock.Now),
	)
}

func collect(t *testing.T, svc FeedService, viewer uuid.UUID) ([]uuid.UUID, int) {
	t.Helper()
	var ids []uuid.UUID
	pages := 0
	cursor := ""
	for {
		page, err := svc.GetGlobalFeed(context.Background(), viewer, cursor)
		require.NoError(t, err)
		pages++
		for _, p := range page.Data {
			ids = append(ids, p.ID)
		}
		if page.NextCursor == nil {
			return ids, pages
		}
		cursor = *page.NextCursor
		require.Less(t, pages, 100, "pagination does not terminate")
	}
}

func TestGlobalFeed_PagesCoverEveryOriginalOnce(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	clock := testutil.NewClock()
	alice := testutil.CreateUser(t, db, "alice", false)

	var want []uuid.UUID
	for i := 0; i < 10; i++ {
		p := testutil.CreatePost(t, db, alice.ID, fmt.Sprintf("post %d", i), clock.Now())
		want = append([]uuid.UUID{p.ID}, want...)
		testutil.CreateComment(t, db, alice.ID, p.ID, "not in feed", clock.Now())
	}

	// Two posts sharing a timestamp are ordered by id, descending.
	same := clock.Now()
	a := testutil.CreatePost(t, db, alice.ID, "twin a", same)
	b := testutil.CreatePost(t, db, alice.ID, "twin b", same)
	hi, lo := a.ID, b.ID
	if lo.String() > hi.String() {
		hi, lo = lo, hi
	}
	want = append([]uuid.UUID{hi, lo}, want...)

	got, pages := collect(t, newFeed(db, 5), alice.ID)
	assert.Equal(t, want, got)
	assert.Equal(t, 3, pages)
}

func TestGlobalFeed_NextCursorOnlyOnFullPage(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	clock := testutil.NewClock()
	alice := testutil.CreateUser(t, db, "alice", false)
	for i := 0; i < 5; i++ {
		testutil.CreatePost(t, db, alice.ID, "p", clock.Now())
	}
	svc := newFeed(db, 5)

	page, err := svc.GetGlobalFeed(context.Background(), alice.ID, "")
	require.NoError(t, err)
	assert.Len(t, page.Data, 5)
	require.NotNil(t, page.NextCursor)

	page, err = svc.GetGlobalFeed(context.Background(), alice.ID, *page.NextCursor)
	require.NoError(t, err)
	assert.NotNil(t, page.Data)
	assert.Empty(t, page.Data)
	assert.Nil(t, page.NextCursor)
}

func TestGlobalFeed_StableAcrossConcurrentInsert(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	clock := testutil.NewClock()
	alice := testutil.CreateUser(t, db, "alice", false)

	var all []uuid.UUID
	for i := 0; i < 8; i++ {
		p := testutil.CreatePost(t, db, alice.ID, "p", clock.Now())
		all = append([]uuid.UUID{p.ID}, all...)
	}
	svc := newFeed(db, 5)

	first, err := svc.GetGlobalFeed(context.Background(), alice.ID, "")
	require.NoError(t, err)
	require.NotNil(t, first.NextCursor)

	// A new post lands between page fetches.
	testutil.CreatePost(t, db, alice.ID, "late", clock.Now())

	second, err := svc.GetGlobalFeed(context.Background(), alice.ID, *first.NextCursor)
	require.NoError(t, err)

	var got []uuid.UUID
	for _, p := range append(first.Data, second.Data...) {
		got = append(got, p.ID)
	}
	assert.Equal(t, all, got)
}

func TestGlobalFeed_BareTimestampCursor(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	clock := testutil.NewClock()
	alice := testutil.CreateUser(t, db, "alice", false)
	older := testutil.CreatePost(t, db, alice.ID, "older", clock.Now())
	newer := testutil.CreatePost(t, db, alice.ID, "newer", clock.Now())

	page, err := newFeed(db, 5).GetGlobalFeed(context.Background(), alice.ID, newer.CreatedAt.Format(time.RFC3339Nano))
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, older.ID, page.Data[0].ID)
}

func TestGlobalFeed_MalformedCursor(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	_, err := newFeed(db, 5).GetGlobalFeed(context.Background(), uuid.New(), "page-2")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestGlobalFeed_ViewerFlags(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	clock := testutil.NewClock()
	eng := newEngagement(db, clock)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice", false)
	bob := testutil.CreateUser(t, db, "bob", false)
	post := testutil.CreatePost(t, db, alice.ID, "hello", clock.Now())
	testutil.CreateComment(t, db, bob.ID, post.ID, "hi", clock.Now())
	testutil.CreateComment(t, db, alice.ID, post.ID, "thanks", clock.Now())

	require.NoError(t, eng.LikePost(ctx, bob.ID, post.ID))
	require.NoError(t, eng.RepostPost(ctx, alice.ID, post.ID))

	svc := newFeed(db, 5)

	page, err := svc.GetGlobalFeed(ctx, bob.ID, "")
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	item := page.Data[0]
	assert.Equal(t, "alice", item.Author.Username)
	assert.Equal(t, int64(2), item.CommentCount)
	assert.Equal(t, int64(1), item.LikeCount)
	assert.Equal(t, int64(1), item.RepostCount)
	assert.True(t, item.IsLiked)
	assert.False(t, item.IsReposted)

	page, err = svc.GetGlobalFeed(ctx, alice.ID, "")
	require.NoError(t, err)
	assert.False(t, page.Data[0].IsLiked)
	assert.True(t, page.Data[0].IsReposted)
}

func TestProfileActivity_MergesPostsAndReposts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	clock := testutil.NewClock()
	eng := newEngagement(db, clock)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "Alice", false)
	bob := testutil.CreateUser(t, db, "bob", false)

	a1 := testutil.CreatePost(t, db, alice.ID, "a1", clock.Now())
	b1 := testutil.CreatePost(t, db, bob.ID, "b1", clock.Now())
	a2 := testutil.CreatePost(t, db, alice.ID, "a2", clock.Now())
	testutil.CreateComment(t, db, alice.ID, b1.ID, "alice's comment is not activity", clock.Now())
	require.NoError(t, eng.RepostPost(ctx, alice.ID, b1.ID)) // newest
	require.NoError(t, eng.RepostPost(ctx, bob.ID, a1.ID))   // bob's activity, not alice's

	entries, err := newFeed(db, 5).GetProfileActivityByUsername(ctx, "alice", bob.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, dto.KindRepost, entries[0].Kind)
	assert.Equal(t, b1.ID, entries[0].Post.ID)
	require.NotNil(t, entries[0].RepostedBy)
	assert.Equal(t, "Alice", *entries[0].RepostedBy)
	assert.Equal(t, "bob", entries[0].Post.Author.Username)
	assert.False(t, entries[0].ActivityAt.Equal(b1.CreatedAt))

	assert.Equal(t, dto.KindOriginal, entries[1].Kind)
	assert.Equal(t, a2.ID, entries[1].Post.ID)
	assert.Nil(t, entries[1].RepostedBy)

	assert.Equal(t, a1.ID, entries[2].Post.ID)
	assert.True(t, entries[2].Post.IsReposted, "bob reposted a1")

	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].ActivityAt.After(entries[i-1].ActivityAt))
	}
}

func TestProfileActivity_UnknownUser(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	svc := newFeed(db, 5)

	_, err := svc.GetProfileActivityByUsername(context.Background(), "ghost", uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = svc.GetProfileActivity(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSortActivity_TieBreaks(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	low := uuid.MustParse("00000000-0000-7000-8000-000000000001")
	high := uuid.MustParse("00000000-0000-7000-8000-000000000002")

	entries := []dto.ActivityEntry{
		{Kind: dto.KindRepost, ActivityAt: at, Post: postWithID(high)},
		{Kind: dto.KindOriginal, ActivityAt: at, Post: postWithID(low)},
		{Kind: dto.KindOriginal, ActivityAt: at, Post: postWithID(high)},
		{Kind: dto.KindOriginal, ActivityAt: at.Add(time.Second), Post: postWithID(low)},
	}
	SortActivity(entries)

	assert.Equal(t, at.Add(time.Second), entries[0].ActivityAt)
	assert.Equal(t, high, entries[1].Post.ID)
	assert.Equal(t, dto.KindOriginal, entries[1].Kind)
	assert.Equal(t, high, entries[2].Post.ID)
	assert.Equal(t, dto.KindRepost, entries[2].Kind)
	assert.Equal(t, low, entries[3].Post.ID)
}

func TestExampleScenario(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	clock := testutil.NewClock()
	eng := newEngagement(db, clock)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "A", false)
	b := testutil.CreateUser(t, db, "B", false)
	c := testutil.CreateUser(t, db, "C", false)

	t0 := clock.Now()
	post := testutil.CreatePost(t, db, a.ID, "hello", t0)
	require.NoError(t, eng.LikePost(ctx, b.ID, post.ID))
	require.NoError(t, eng.RepostPost(ctx, b.ID, post.ID))

	var repost entity.Repost
	require.NoError(t, db.Where("user_id = ? AND post_id = ?", b.ID, post.ID).First(&repost).Error)
	t1 := repost.CreatedAt

	page, err := newFeed(db, 1).GetGlobalFeed(ctx, c.ID, "")
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	item := page.Data[0]
	assert.Equal(t, post.ID, item.ID)
	assert.Equal(t, int64(1), item.LikeCount)
	assert.Equal(t, int64(1), item.RepostCount)
	assert.False(t, item.IsLiked)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, EncodeCursor(t0, post.ID), *page.NextCursor)

	entries, err := newFeed(db, 1).GetProfileActivityByUsername(ctx, "b", c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, dto.KindRepost, entries[0].Kind)
	assert.True(t, entries[0].ActivityAt.Equal(t1))
	require.NotNil(t, entries[0].RepostedBy)
	assert.Equal(t, "B", *entries[0].RepostedBy)
}

func postWithID(id uuid.UUID) postDto.PostResponse {
	return postDto.PostResponse{ID: id}
}
