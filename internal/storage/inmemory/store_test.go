package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/sitecms/internal/domain"
	"github.com/UkralStul/sitecms/internal/storage"
)

// newTestStore создает хранилище с управляемыми часами, одну категорию и один пост.
func newTestStore(t *testing.T) (*Store, *domain.Post) {
	t.Helper()
	store := New()
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	ctx := context.Background()
	category, err := store.CreateCategory(ctx, &domain.Category{Name: "General", Slug: "general", Color: domain.DefaultCategoryColor})
	require.NoError(t, err)
	post, err := store.CreatePost(ctx, &domain.Post{
		Title:      "Test Post",
		Slug:       "test-post",
		Content:    "Content",
		Author:     "user-1",
		CategoryID: category.ID,
	})
	require.NoError(t, err)
	return store, post
}

func TestStore_EnsureBlock(t *testing.T) {
	store := New()
	ctx := context.Background()

	first, err := store.EnsureBlock(ctx, domain.BlockLogo, []byte(`{"main":"a"}`))
	require.NoError(t, err)
	second, err := store.EnsureBlock(ctx, domain.BlockLogo, []byte(`{"main":"b"}`))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.JSONEq(t, `{"main":"a"}`, string(second.Payload))

	updated, err := store.UpdateBlockPayload(ctx, first.ID, []byte(`{"main":"c"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"main":"c"}`, string(updated.Payload))

	_, err = store.UpdateBlockPayload(ctx, 999, []byte(`{}`))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_CreateAndGetPost(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, retrieved.Title)
	require.NotNil(t, retrieved.Category)
	assert.Equal(t, "general", retrieved.Category.Slug)

	bySlug, err := store.GetPostBySlug(ctx, "test-post")
	require.NoError(t, err)
	assert.Equal(t, post.ID, bySlug.ID)

	_, err = store.GetPostByID(ctx, 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.CreatePost(ctx, &domain.Post{Title: "dup", Slug: "test-post", Content: "c", Author: "a", CategoryID: post.CategoryID})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestStore_ReturnsCopies(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	retrieved.Title = "changed outside"
	retrieved.Category.Name = "changed outside"

	again, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Post", again.Title)
	assert.Equal(t, "General", again.Category.Name)
}

func TestStore_CreateComment_Success(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	comment, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, Author: "user-2", Content: "First comment!"})
	require.NoError(t, err)
	assert.NotZero(t, comment.ID)

	comments, err := store.GetTopLevelComments(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)
	assert.Equal(t, "First comment!", comments[0].Content)
}

func TestStore_CreateComment_PostLocked(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	// Закрываем тему
	_, err := store.UpdatePost(ctx, post.ID, domain.PostPatch{IsLocked: ptr(true)})
	require.NoError(t, err)

	// Пытаемся создать комментарий
	_, err = store.CreateComment(ctx, &domain.Comment{PostID: post.ID, Author: "user-2", Content: "This should fail"})
	assert.ErrorIs(t, err, domain.ErrPostLocked)
}

func TestStore_CreateComment_ParentChecks(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	other, err := store.CreatePost(ctx, &domain.Post{Title: "Other", Slug: "other", Content: "c", Author: "a", CategoryID: post.CategoryID})
	require.NoError(t, err)
	foreign, err := store.CreateComment(ctx, &domain.Comment{PostID: other.ID, Author: "a", Content: "elsewhere"})
	require.NoError(t, err)

	_, err = store.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: ptr(uint(999)), Author: "a", Content: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &foreign.ID, Author: "a", Content: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_CommentOrdering(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	first, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, Author: "a", Content: "first"})
	require.NoError(t, err)
	second, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, Author: "a", Content: "second"})
	require.NoError(t, err)
	r1, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &first.ID, Author: "b", Content: "r1"})
	require.NoError(t, err)
	r2, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &first.ID, Author: "b", Content: "r2"})
	require.NoError(t, err)

	top, err := store.GetTopLevelComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, second.ID, top[0].ID, "top-level comments are newest first")

	replies, err := store.GetCommentsByParentIDs(ctx, []uint{first.ID, second.ID})
	require.NoError(t, err)
	require.Len(t, replies[first.ID], 2)
	assert.Equal(t, r1.ID, replies[first.ID][0].ID, "replies are oldest first")
	assert.Equal(t, r2.ID, replies[first.ID][1].ID)
	assert.Empty(t, replies[second.ID])

	counts, err := store.CountCommentsByPostIDs(ctx, []uint{post.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts[post.ID])
	assert.Equal(t, int64(0), counts[999])
}

func TestStore_DeleteCascades(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	parent, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, Author: "a", Content: "parent"})
	require.NoError(t, err)
	child, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &parent.ID, Author: "a", Content: "child"})
	require.NoError(t, err)
	grandchild, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &child.ID, Author: "a", Content: "grandchild"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteComment(ctx, parent.ID))
	for _, id := range []uint{parent.ID, child.ID, grandchild.ID} {
		_, err := store.GetCommentByID(ctx, id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}

	kept, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, Author: "a", Content: "kept"})
	require.NoError(t, err)
	require.NoError(t, store.DeleteCategory(ctx, post.CategoryID))

	_, err = store.GetPostByID(ctx, post.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetCommentByID(ctx, kept.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ListPosts(t *testing.T) {
	store, first := newTestStore(t)
	ctx := context.Background()

	pinned, err := store.CreatePost(ctx, &domain.Post{Title: "Pinned", Slug: "pinned", Content: "c", Author: "a", CategoryID: first.CategoryID, IsPinned: true})
	require.NoError(t, err)
	latest, err := store.CreatePost(ctx, &domain.Post{Title: "Latest about Search", Slug: "latest", Content: "c", Author: "a", CategoryID: first.CategoryID})
	require.NoError(t, err)

	posts, total, err := store.ListPosts(ctx, storage.PostQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []uint{pinned.ID, latest.ID, first.ID}, []uint{posts[0].ID, posts[1].ID, posts[2].ID})

	posts, total, err = store.ListPosts(ctx, storage.PostQuery{Offset: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, posts, 1)
	assert.Equal(t, first.ID, posts[0].ID)

	posts, total, err = store.ListPosts(ctx, storage.PostQuery{Search: "SEARCH", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, latest.ID, posts[0].ID)

	posts, _, err = store.ListPosts(ctx, storage.PostQuery{Offset: 50, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestStore_CategoryConflicts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateCategory(ctx, &domain.Category{Name: "General", Slug: "other"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	c, err := store.CreateCategory(ctx, &domain.Category{Name: "Other", Slug: "other"})
	require.NoError(t, err)
	_, err = store.UpdateCategory(ctx, c.ID, domain.CategoryPatch{Slug: ptr("general")})
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = store.UpdateCategory(ctx, 999, domain.CategoryPatch{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
