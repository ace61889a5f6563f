package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"anoa.com/socialfeed/internal/entity"
	postDto "anoa.com/socialfeed/internal/modules/post/dto"
	postRepo "anoa.com/socialfeed/internal/modules/post/repository"
	userRepo "anoa.com/socialfeed/internal/modules/user/repository"
	"anoa.com/socialfeed/internal/testutil"
	"anoa.com/socialfeed/pkg/apperror"
	"anoa.com/socialfeed/pkg/ratelimiter"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeStorage struct {
	uploads   []string
	deleted   []string
	uploadErr error
}

func (f *fakeStorage) Upload(_ context.Context, _ io.Reader, folder, fileName string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	url := "https://cdn.example.com/" + folder + "/" + fileName
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakeStorage) Delete(_ context.Context, fileURL string) error {
	f.deleted = append(f.deleted, fileURL)
	return nil
}

type fixture struct {
	db      *gorm.DB
	svc     PostService
	store   *fakeStorage
	clock   *testutil.Clock
	alice   *entity.User
	bob     *entity.User
	admin   *entity.User
	limiter *ratelimiter.Limiter
}

func setup(t *testing.T, limiter *ratelimiter.Limiter) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	f := &fixture{
		db:      db,
		store:   &fakeStorage{},
		clock:   testutil.NewClock(),
		alice:   testutil.CreateUser(t, db, "alice", false),
		bob:     testutil.CreateUser(t, db, "bob", false),
		admin:   testutil.CreateUser(t, db, "admin", true),
		limiter: limiter,
	}
	f.svc = NewPostService(
		postRepo.NewPostRepository(db),
		userRepo.NewUserRepository(db),
		nil,
		f.store,
		limiter,
		nil,
		Limits{Global: 5 * time.Second, Post: 15 * time.Second},
		WithClock(f.clock.Now),
	)
	return f
}

func TestCreatePost(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	resp, err := f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "  if a<b and c>d then & friends "})
	require.NoError(t, err)
	assert.Equal(t, "if a<b and c>d then & friends", resp.Content)
	assert.False(t, resp.IsComment)
	assert.Nil(t, resp.ParentID)
	assert.Equal(t, "alice", resp.Author.Username)
	assert.Zero(t, resp.LikeCount)

	stored := testutil.Reload(t, f.db, resp.ID)
	assert.Equal(t, "if a<b and c>d then & friends", stored.Content)
	assert.True(t, stored.IsOriginal())
}

func TestCreatePost_Validation(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	_, err := f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "   "})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: strings.Repeat("é", 281)})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	// Length is counted in characters, not bytes.
	_, err = f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: strings.Repeat("é", 280)})
	assert.NoError(t, err)

	_, err = f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{
		Media: &postDto.MediaFile{Reader: strings.NewReader("x"), FileName: "a.pdf", ContentType: "application/pdf", Size: 1},
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{
		Media: &postDto.MediaFile{Reader: strings.NewReader("x"), FileName: "a.png", ContentType: "image/png", Size: maxMediaSize + 1},
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.CreatePost(ctx, uuid.New(), postDto.CreatePostRequest{Content: "ghost"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCreatePost_WithMedia(t *testing.T) {
	f := setup(t, nil)

	resp, err := f.svc.CreatePost(context.Background(), f.alice.ID, postDto.CreatePostRequest{
		Media: &postDto.MediaFile{Reader: strings.NewReader("mp4"), FileName: "clip.mp4", ContentType: "video/mp4", Size: 3},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.MediaURL)
	assert.Equal(t, "https://cdn.example.com/posts/clip.mp4", *resp.MediaURL)
	assert.Equal(t, "", resp.Content)
}

func TestCreatePost_RateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f := setup(t, ratelimiter.New(rdb))
	ctx := context.Background()

	_, err := f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "one"})
	require.NoError(t, err)

	_, err = f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "two"})
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)

	// Other users are unaffected.
	_, err = f.svc.CreatePost(ctx, f.bob.ID, postDto.CreatePostRequest{Content: "bob"})
	assert.NoError(t, err)

	mr.FastForward(6 * time.Second)
	_, err = f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "still too soon"})
	assert.ErrorIs(t, err, apperror.ErrRateLimitExceeded)

	mr.FastForward(10 * time.Second)
	_, err = f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "three"})
	assert.NoError(t, err)
}

func TestCreatePost_FailedUploadReleasesCooldown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	f := setup(t, ratelimiter.New(rdb))
	ctx := context.Background()

	f.store.uploadErr = errors.New("cdn down")
	_, err := f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{
		Media: &postDto.MediaFile{Reader: strings.NewReader("x"), FileName: "a.png", ContentType: "image/png", Size: 1},
	})
	require.Error(t, err)

	f.store.uploadErr = nil
	_, err = f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "retry"})
	assert.NoError(t, err)
}

func TestCreateComment(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	parent, err := f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "root"})
	require.NoError(t, err)

	comment, err := f.svc.CreateComment(ctx, f.bob.ID, parent.ID, postDto.CreateCommentRequest{Content: "nice"})
	require.NoError(t, err)
	assert.True(t, comment.IsComment)
	require.NotNil(t, comment.ParentID)
	assert.Equal(t, parent.ID, *comment.ParentID)
	assert.Zero(t, comment.LikeCount)
	assert.Zero(t, comment.RepostCount)

	// Parent counters are untouched; comment_count is derived.
	stored := testutil.Reload(t, f.db, parent.ID)
	assert.Zero(t, stored.LikeCount)
	assert.Zero(t, stored.RepostCount)

	got, err := f.svc.GetPostByID(ctx, parent.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CommentCount)
}

func TestCreateComment_Errors(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	parent, err := f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "root"})
	require.NoError(t, err)
	comment, err := f.svc.CreateComment(ctx, f.bob.ID, parent.ID, postDto.CreateCommentRequest{Content: "level one"})
	require.NoError(t, err)

	_, err = f.svc.CreateComment(ctx, f.alice.ID, comment.ID, postDto.CreateCommentRequest{Content: "level two"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.CreateComment(ctx, f.alice.ID, uuid.New(), postDto.CreateCommentRequest{Content: "orphan"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.svc.CreateComment(ctx, f.alice.ID, parent.ID, postDto.CreateCommentRequest{Content: " \n\t "})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = f.svc.CreateComment(ctx, f.alice.ID, parent.ID, postDto.CreateCommentRequest{Content: strings.Repeat("a", 281)})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestGetComments(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	parent, err := f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "root"})
	require.NoError(t, err)

	comments, err := f.svc.GetComments(ctx, parent.ID)
	require.NoError(t, err)
	assert.NotNil(t, comments)
	assert.Empty(t, comments)

	first, err := f.svc.CreateComment(ctx, f.bob.ID, parent.ID, postDto.CreateCommentRequest{Content: "first"})
	require.NoError(t, err)
	second, err := f.svc.CreateComment(ctx, f.alice.ID, parent.ID, postDto.CreateCommentRequest{Content: "second"})
	require.NoError(t, err)

	comments, err = f.svc.GetComments(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, second.ID, comments[0].ID)
	assert.Equal(t, first.ID, comments[1].ID)
	assert.Equal(t, "bob", comments[1].Author.Username)

	comments, err = f.svc.GetComments(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestGetPostByID_NotFound(t *testing.T) {
	f := setup(t, nil)
	_, err := f.svc.GetPostByID(context.Background(), uuid.New(), f.alice.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeletePost_Authorization(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	newPost := func() *postDto.PostResponse {
		p, err := f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{
			Content: "mine",
			Media:   &postDto.MediaFile{Reader: strings.NewReader("x"), FileName: "p.png", ContentType: "image/png", Size: 1},
		})
		require.NoError(t, err)
		return p
	}

	// A stranger is refused and nothing changes.
	p := newPost()
	err := f.svc.DeletePost(ctx, f.bob.ID, p.ID)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	testutil.Reload(t, f.db, p.ID)
	assert.Empty(t, f.store.deleted)

	// The author may delete; media goes with it.
	require.NoError(t, f.svc.DeletePost(ctx, f.alice.ID, p.ID))
	assert.Equal(t, []string{*p.MediaURL}, f.store.deleted)
	_, err = f.svc.GetPostByID(ctx, p.ID, f.alice.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	// An admin may delete anyone's post.
	p = newPost()
	require.NoError(t, f.svc.DeletePost(ctx, f.admin.ID, p.ID))

	err = f.svc.DeletePost(ctx, f.alice.ID, p.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestDeletePost_RemovesComments(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	parent, err := f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "root"})
	require.NoError(t, err)
	comment, err := f.svc.CreateComment(ctx, f.bob.ID, parent.ID, postDto.CreateCommentRequest{Content: "reply"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePost(ctx, f.alice.ID, parent.ID))

	_, err = f.svc.GetPostByID(ctx, comment.ID, f.bob.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestNormalizeContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"comparison operators", "if a<b and c>d then", "if a<b and c>d then"},
		{"tag-like text", "use <br> tags", "use <br> tags"},
		{"entity-encoded markup stays encoded", "&lt;script&gt;alert(1)&lt;/script&gt;", "&lt;script&gt;alert(1)&lt;/script&gt;"},
		{"markup is not decoded or stripped", "<i>there</i>", "<i>there</i>"},
		{"apostrophe and ampersand", " it's 5 > 3 & more ", "it's 5 > 3 & more"},
		{"whitespace only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeContent(tt.in))
		})
	}
}

func TestCreateComment_StoresContentAsTyped(t *testing.T) {
	f := setup(t, nil)
	ctx := context.Background()

	parent, err := f.svc.CreatePost(ctx, f.alice.ID, postDto.CreatePostRequest{Content: "root"})
	require.NoError(t, err)

	const typed = "&lt;b&gt;not bold&lt;/b&gt; but x<y"
	comment, err := f.svc.CreateComment(ctx, f.bob.ID, parent.ID, postDto.CreateCommentRequest{Content: typed})
	require.NoError(t, err)
	assert.Equal(t, typed, comment.Content)
	assert.Equal(t, typed, testutil.Reload(t, f.db, comment.ID).Content)
}
