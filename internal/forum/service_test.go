package forum

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/sitecms/internal/dataloader"
	"github.com/UkralStul/sitecms/internal/domain"
	"github.com/UkralStul/sitecms/internal/storage"
	"github.com/UkralStul/sitecms/internal/storage/inmemory"
)

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T) (*Service, *inmemory.Store) {
	t.Helper()
	store := inmemory.New()
	return NewService(store, DefaultSampleData(time.Now()), zerolog.Nop()), store
}

func mustCategory(t *testing.T, svc *Service, name string) *domain.Category {
	t.Helper()
	c, err := svc.CreateCategory(context.Background(), domain.NewCategory{Name: name})
	require.NoError(t, err)
	return c
}

func mustPost(t *testing.T, svc *Service, categoryID uint, title string, pinned bool) *domain.Post {
	t.Helper()
	p, err := svc.CreatePost(context.Background(), domain.NewPost{
		Title:      title,
		Content:    "<p>Body of " + title + "</p>",
		Author:     "tester",
		CategoryID: categoryID,
		IsPinned:   ptr(pinned),
	})
	require.NoError(t, err)
	return p
}

// failingForum - хранилище, у которого списки всегда падают.
type failingForum struct {
	storage.Forum
}

func (failingForum) ListCategories(context.Context) ([]*domain.Category, error) {
	return nil, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (failingForum) ListPosts(context.Context, storage.PostQuery) ([]*domain.Post, int64, error) {
	return nil, 0, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (failingForum) ListPinnedPosts(context.Context) ([]*domain.Post, error) {
	return nil, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (failingForum) GetPostByID(context.Context, uint) (*domain.Post, error) {
	return nil, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

func (failingForum) CreateCategory(context.Context, *domain.Category) (*domain.Category, error) {
	return nil, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
}

// === Categories ===

func TestCreateCategory_Defaults(t *testing.T) {
	svc, _ := newTestService(t)

	c, err := svc.CreateCategory(context.Background(), domain.NewCategory{Name: "Go Programming"})
	require.NoError(t, err)
	assert.Equal(t, "go-programming", c.Slug)
	assert.Equal(t, domain.DefaultCategoryColor, c.Color)
	assert.Equal(t, 0, c.Order)
	require.NotNil(t, c.PostCount)
	assert.Equal(t, int64(0), *c.PostCount)

	_, err = svc.CreateCategory(context.Background(), domain.NewCategory{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateCategory(context.Background(), domain.NewCategory{Name: "Go Programming"})
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestCreateAndUpdate_RejectMalformedSlugs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, domain.NewCategory{Name: "News", Slug: "Breaking News!"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	c, err := svc.CreateCategory(ctx, domain.NewCategory{Name: "News", Slug: "breaking-news"})
	require.NoError(t, err)
	assert.Equal(t, "breaking-news", c.Slug)

	_, err = svc.UpdateCategory(ctx, c.ID, domain.CategoryPatch{Slug: ptr("UPPER")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreatePost(ctx, domain.NewPost{
		Title: "Hello", Slug: "hello world", Content: "x", Author: "a", CategoryID: c.ID,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	p := mustPost(t, svc, c.ID, "Hello", false)
	_, err = svc.UpdatePost(ctx, p.ID, domain.PostPatch{Slug: ptr("héllo")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	updated, err := svc.UpdatePost(ctx, p.ID, domain.PostPatch{Slug: ptr("hello-again")})
	require.NoError(t, err)
	assert.Equal(t, "hello-again", updated.Slug)
}

func TestListCategories_OrderAndPostCount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	second, err := svc.CreateCategory(ctx, domain.NewCategory{Name: "Second", Order: ptr(2)})
	require.NoError(t, err)
	first, err := svc.CreateCategory(ctx, domain.NewCategory{Name: "First", Order: ptr(1)})
	require.NoError(t, err)
	mustPost(t, svc, second.ID, "one", false)
	mustPost(t, svc, second.ID, "two", false)

	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, first.ID, categories[0].ID)
	assert.Equal(t, int64(0), *categories[0].PostCount)
	assert.Equal(t, int64(2), *categories[1].PostCount)
}

func TestGetCategory_Selector(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Design")

	byID, err := svc.GetCategory(ctx, domain.Selector{ID: &c.ID})
	require.NoError(t, err)
	assert.Equal(t, "design", byID.Slug)

	bySlug, err := svc.GetCategory(ctx, domain.Selector{Slug: ptr("design")})
	require.NoError(t, err)
	assert.Equal(t, c.ID, bySlug.ID)

	missing, err := svc.GetCategory(ctx, domain.Selector{Slug: ptr("nope")})
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.GetCategory(ctx, domain.Selector{})
	assert.ErrorIs(t, err, domain.ErrMissingSelector)
}

func TestDeleteCategory_Cascades(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Temp")
	p := mustPost(t, svc, c.ID, "doomed", false)
	comment, err := svc.CreateComment(ctx, domain.NewComment{Content: "hi", Author: "a", PostID: p.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, c.ID))

	got, err := svc.GetPost(ctx, domain.Selector{ID: &p.ID})
	require.NoError(t, err)
	assert.Nil(t, got)
	gotComment, err := svc.GetComment(ctx, comment.ID)
	require.NoError(t, err)
	assert.Nil(t, gotComment)

	assert.ErrorIs(t, svc.DeleteCategory(ctx, c.ID), storage.ErrNotFound)
}

// === Posts ===

func TestCreatePost_DerivesSlugAndExcerpt(t *testing.T) {
	svc, _ := newTestService(t)
	c := mustCategory(t, svc, "Tech")

	long := "<p>" + strings.Repeat("word ", 60) + "</p>"
	p, err := svc.CreatePost(context.Background(), domain.NewPost{
		Title:      "Hello, World!",
		Content:    long,
		Author:     "me",
		CategoryID: c.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello-world", p.Slug)
	require.NotNil(t, p.Excerpt)
	assert.NotContains(t, *p.Excerpt, "<p>")
	assert.LessOrEqual(t, len([]rune(*p.Excerpt)), 161)
	require.NotNil(t, p.Category)
	assert.Equal(t, c.ID, p.Category.ID)
	assert.Equal(t, int64(0), *p.CommentCount)

	_, err = svc.CreatePost(context.Background(), domain.NewPost{Title: "x", Content: "y", Author: "z", CategoryID: 999})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.CreatePost(context.Background(), domain.NewPost{Title: "", Content: "y", Author: "z", CategoryID: c.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListPosts_Pagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Bulk")
	for i := 0; i < 25; i++ {
		mustPost(t, svc, c.ID, fmt.Sprintf("post %02d", i), false)
	}

	page, err := svc.ListPosts(ctx, domain.PostFilter{Page: 2, PageSize: 9})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 9)
	assert.Equal(t, int64(25), page.Total)
	assert.True(t, page.HasMore)

	page, err = svc.ListPosts(ctx, domain.PostFilter{Page: 3, PageSize: 9})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 7)
	assert.False(t, page.HasMore)

	page, err = svc.ListPosts(ctx, domain.PostFilter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, MaxPageSize, page.PageSize)
	assert.Len(t, page.Posts, 25)

	page, err = svc.ListPosts(ctx, domain.PostFilter{})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Len(t, page.Posts, DefaultPageSize)
}

func TestListPosts_HugePageIsClamped(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Bulk")
	mustPost(t, svc, c.ID, "only", false)

	page, err := svc.ListPosts(ctx, domain.PostFilter{Page: math.MaxInt, PageSize: MaxPageSize})
	require.NoError(t, err)
	assert.Equal(t, MaxPage, page.Page)
	assert.Empty(t, page.Posts)
	assert.Equal(t, int64(1), page.Total)
	assert.False(t, page.HasMore)
}

func TestListPosts_PinnedFirstThenNewest(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Order")
	old := mustPost(t, svc, c.ID, "old", false)
	pinned := mustPost(t, svc, c.ID, "pinned", true)
	newest := mustPost(t, svc, c.ID, "newest", false)

	page, err := svc.ListPosts(ctx, domain.PostFilter{})
	require.NoError(t, err)
	require.Len(t, page.Posts, 3)
	assert.Equal(t, []uint{pinned.ID, newest.ID, old.ID},
		[]uint{page.Posts[0].ID, page.Posts[1].ID, page.Posts[2].ID})

	pins, err := svc.ListPinnedPosts(ctx)
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, pinned.ID, pins[0].ID)
}

func TestListPosts_FilterAndSearch(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	a := mustCategory(t, svc, "A")
	b := mustCategory(t, svc, "B")
	mustPost(t, svc, a.ID, "Learning Go", false)
	mustPost(t, svc, b.ID, "Cooking pasta", false)
	mustPost(t, svc, b.ID, "GOLANG tips", false)

	page, err := svc.ListPosts(ctx, domain.PostFilter{CategoryID: &b.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = svc.ListPosts(ctx, domain.PostFilter{Search: ptr("go")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	page, err = svc.ListPosts(ctx, domain.PostFilter{Search: ptr("go"), CategoryID: &b.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "GOLANG tips", page.Posts[0].Title)
}

func TestIncrementPostViews_Concurrent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Views")
	p := mustPost(t, svc, c.ID, "popular", false)

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.IncrementPostViews(ctx, p.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := svc.GetPost(ctx, domain.Selector{ID: &p.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.Views)

	_, err = svc.IncrementPostViews(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetPost_Selector(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Sel")
	p := mustPost(t, svc, c.ID, "Find me", false)

	got, err := svc.GetPost(ctx, domain.Selector{Slug: ptr("find-me")})
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	require.NotNil(t, got.Category)
	assert.Equal(t, int64(1), *got.Category.PostCount)

	_, err = svc.GetPost(ctx, domain.Selector{ID: &p.ID, Slug: ptr("find-me")})
	assert.ErrorIs(t, err, domain.ErrMissingSelector)
}

// === Fallback ===

func TestFallback_ServesSampleData(t *testing.T) {
	var logs bytes.Buffer
	svc := NewService(failingForum{}, DefaultSampleData(time.Now()), zerolog.New(&logs))
	ctx := context.Background()

	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 3)
	assert.Equal(t, "technology", categories[0].Slug)
	assert.Equal(t, int64(3), *categories[0].PostCount)

	page, err := svc.ListPosts(ctx, domain.PostFilter{Page: 4, PageSize: 5})
	require.NoError(t, err)
	assert.Len(t, page.Posts, 2)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.False(t, page.HasMore)

	design := uint(2)
	page, err = svc.ListPosts(ctx, domain.PostFilter{CategoryID: &design})
	require.NoError(t, err)
	assert.Empty(t, page.Posts)

	pins, err := svc.ListPinnedPosts(ctx)
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.Equal(t, "welcome-to-forum", pins[0].Slug)

	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), `"operation":"categories"`)

	// сбой одиночного поиска не подменяется демо-данными
	_, err = svc.GetPost(ctx, domain.Selector{ID: ptr(uint(1))})
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestFallback_MutationsPropagateErrors(t *testing.T) {
	svc := NewService(failingForum{}, DefaultSampleData(time.Now()), zerolog.Nop())
	ctx := context.Background()

	categories, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, categories)

	created, err := svc.CreateCategory(ctx, domain.NewCategory{Name: "Offline"})
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Nil(t, created)
}

func TestFallback_ReturnsCopies(t *testing.T) {
	svc := NewService(failingForum{}, DefaultSampleData(time.Now()), zerolog.Nop())
	ctx := context.Background()

	first, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	first[0].Name = "mutated"

	second, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Technology", second[0].Name)
}

// === Comments ===

func TestComments_RepliesAndOrdering(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Talk")
	p := mustPost(t, svc, c.ID, "thread", false)

	first, err := svc.CreateComment(ctx, domain.NewComment{Content: "first", Author: "a", PostID: p.ID})
	require.NoError(t, err)
	assert.NotNil(t, first.Replies)
	assert.Empty(t, first.Replies)

	second, err := svc.CreateComment(ctx, domain.NewComment{Content: "second", Author: "b", PostID: p.ID})
	require.NoError(t, err)
	r1, err := svc.CreateComment(ctx, domain.NewComment{Content: "reply 1", Author: "c", PostID: p.ID, ParentID: &first.ID})
	require.NoError(t, err)
	r2, err := svc.CreateComment(ctx, domain.NewComment{Content: "reply 2", Author: "d", PostID: p.ID, ParentID: &first.ID})
	require.NoError(t, err)

	comments, err := svc.ListComments(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, second.ID, comments[0].ID)
	assert.Equal(t, first.ID, comments[1].ID)
	require.Len(t, comments[1].Replies, 2)
	assert.Equal(t, r1.ID, comments[1].Replies[0].ID)
	assert.Equal(t, r2.ID, comments[1].Replies[1].ID)

	post, err := svc.GetPost(ctx, domain.Selector{ID: &p.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(4), *post.CommentCount)
}

func TestCreateComment_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Rules")
	p := mustPost(t, svc, c.ID, "rules", false)
	other := mustPost(t, svc, c.ID, "other", false)

	_, err := svc.CreateComment(ctx, domain.NewComment{Content: "   ", Author: "a", PostID: p.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateComment(ctx, domain.NewComment{Content: strings.Repeat("я", MaxCommentLength+1), Author: "a", PostID: p.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.CreateComment(ctx, domain.NewComment{Content: strings.Repeat("я", MaxCommentLength), Author: "a", PostID: p.ID})
	assert.NoError(t, err)

	_, err = svc.CreateComment(ctx, domain.NewComment{Content: "x", Author: "a", PostID: 999})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = svc.CreateComment(ctx, domain.NewComment{Content: "x", Author: "a", PostID: p.ID, ParentID: ptr(uint(999))})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	onOther, err := svc.CreateComment(ctx, domain.NewComment{Content: "x", Author: "a", PostID: other.ID})
	require.NoError(t, err)
	_, err = svc.CreateComment(ctx, domain.NewComment{Content: "x", Author: "a", PostID: p.ID, ParentID: &onOther.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreateComment_LockedPost(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Locked")
	p := mustPost(t, svc, c.ID, "closed", false)

	_, err := svc.UpdatePost(ctx, p.ID, domain.PostPatch{IsLocked: ptr(true)})
	require.NoError(t, err)

	_, err = svc.CreateComment(ctx, domain.NewComment{Content: "let me in", Author: "a", PostID: p.ID})
	assert.ErrorIs(t, err, domain.ErrPostLocked)
}

func TestDeleteComment_RemovesReplies(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Del")
	p := mustPost(t, svc, c.ID, "del", false)

	parent, err := svc.CreateComment(ctx, domain.NewComment{Content: "parent", Author: "a", PostID: p.ID})
	require.NoError(t, err)
	reply, err := svc.CreateComment(ctx, domain.NewComment{Content: "reply", Author: "b", PostID: p.ID, ParentID: &parent.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteComment(ctx, parent.ID))

	got, err := svc.GetComment(ctx, reply.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, svc.DeleteComment(ctx, parent.ID), storage.ErrNotFound)
}

func TestUpdateComment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	c := mustCategory(t, svc, "Edit")
	p := mustPost(t, svc, c.ID, "edit", false)
	comment, err := svc.CreateComment(ctx, domain.NewComment{Content: "typo", Author: "a", PostID: p.ID})
	require.NoError(t, err)

	updated, err := svc.UpdateComment(ctx, comment.ID, domain.CommentPatch{Content: ptr("  fixed  ")})
	require.NoError(t, err)
	assert.Equal(t, "fixed", updated.Content)

	_, err = svc.UpdateComment(ctx, comment.ID, domain.CommentPatch{Content: ptr("")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.UpdateComment(ctx, 999, domain.CommentPatch{Content: ptr("x")})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRelations_UseRequestLoaders(t *testing.T) {
	svc, store := newTestService(t)
	c := mustCategory(t, svc, "Loaders")
	mustPost(t, svc, c.ID, "a", false)
	mustPost(t, svc, c.ID, "b", false)

	ctx := dataloader.WithLoaders(context.Background(), dataloader.New(store))
	page, err := svc.ListPosts(ctx, domain.PostFilter{})
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	for _, p := range page.Posts {
		assert.Equal(t, int64(0), *p.CommentCount)
		assert.Equal(t, int64(2), *p.Category.PostCount)
	}
}
