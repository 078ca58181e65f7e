package forum

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/UkralStul/sitecms/internal/dataloader"
	"github.com/UkralStul/sitecms/internal/domain"
	"github.com/UkralStul/sitecms/internal/slug"
	"github.com/UkralStul/sitecms/internal/storage"
)

const (
	DefaultPageSize  = 20
	MaxPageSize      = 100
	MaxCommentLength = 2000

	// MaxPage ограничивает номер страницы так, чтобы смещение помещалось в int32.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// relations - пакетная загрузка производных полей (postCount, commentCount, replies).
// Внутри HTTP-запроса это дата-лоадеры, иначе - хранилище напрямую.
type relations interface {
	PostCounts(ctx context.Context, categoryIDs []uint) (map[uint]int64, error)
	CommentCounts(ctx context.Context, postIDs []uint) (map[uint]int64, error)
	Replies(ctx context.Context, commentIDs []uint) (map[uint][]*domain.Comment, error)
}

type storeRelations struct{ store storage.Forum }

func (r storeRelations) PostCounts(ctx context.Context, ids []uint) (map[uint]int64, error) {
	return r.store.CountPostsByCategoryIDs(ctx, ids)
}

func (r storeRelations) CommentCounts(ctx context.Context, ids []uint) (map[uint]int64, error) {
	return r.store.CountCommentsByPostIDs(ctx, ids)
}

func (r storeRelations) Replies(ctx context.Context, ids []uint) (map[uint][]*domain.Comment, error) {
	return r.store.GetCommentsByParentIDs(ctx, ids)
}

// Service - операции форума: категории, темы, комментарии.
// Списки категорий и тем при сбое хранилища отдают демо-данные; остальные операции возвращают ошибку.
type Service struct {
	store  storage.Forum
	sample SampleData
	log    zerolog.Logger
}

// NewService - конструктор сервиса форума.
func NewService(store storage.Forum, sample SampleData, log zerolog.Logger) *Service {
	return &Service{
		store:  store,
		sample: sample,
		log:    log.With().Str("component", "forum").Logger(),
	}
}

func (s *Service) relations(ctx context.Context) relations {
	if l := dataloader.For(ctx); l != nil {
		return l
	}
	return storeRelations{store: s.store}
}

func (s *Service) fallback(op string, err error) {
	s.log.Warn().Err(err).Str("operation", op).Msg("storage unavailable, serving sample data")
}

// absent превращает ErrNotFound в пустой результат для операций поиска.
func absent[T any](v *T, err error) (*T, error) {
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// checkSlug пропускает пустой slug (он будет сгенерирован) и отклоняет некорректный.
func checkSlug(s *string) error {
	if s == nil || blank(*s) || slug.Valid(strings.TrimSpace(*s)) {
		return nil
	}
	return invalid("slug %q may contain only lowercase latin letters, digits and hyphens", *s)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// === Categories ===

// ListCategories возвращает категории по возрастанию order с количеством тем.
func (s *Service) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err == nil {
		err = s.withPostCounts(ctx, categories...)
	}
	if err != nil {
		s.fallback("categories", err)
		return s.sample.categories(), nil
	}
	return categories, nil
}

// GetCategory ищет категорию по id или slug. Отсутствующая категория - (nil, nil).
func (s *Service) GetCategory(ctx context.Context, sel domain.Selector) (*domain.Category, error) {
	var (
		category *domain.Category
		err      error
	)
	switch {
	case sel.ID != nil && sel.Slug == nil:
		category, err = absent(s.store.GetCategoryByID(ctx, *sel.ID))
	case sel.Slug != nil && sel.ID == nil:
		category, err = absent(s.store.GetCategoryBySlug(ctx, *sel.Slug))
	default:
		return nil, domain.ErrMissingSelector
	}
	if err != nil || category == nil {
		return nil, err
	}
	if err := s.withPostCounts(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *Service) CreateCategory(ctx context.Context, input domain.NewCategory) (*domain.Category, error) {
	if blank(input.Name) {
		return nil, invalid("category name is required")
	}
	if err := checkSlug(&input.Slug); err != nil {
		return nil, err
	}
	category := &domain.Category{
		Name:        strings.TrimSpace(input.Name),
		Slug:        strings.TrimSpace(input.Slug),
		Description: input.Description,
		Icon:        input.Icon,
		Color:       domain.DefaultCategoryColor,
	}
	if category.Slug == "" {
		category.Slug = slug.FromTitle(category.Name, "category")
	}
	if input.Color != nil && !blank(*input.Color) {
		category.Color = *input.Color
	}
	if input.Order != nil {
		category.Order = *input.Order
	}

	created, err := s.store.CreateCategory(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	s.log.Info().Uint("id", created.ID).Str("slug", created.Slug).Msg("category created")
	if err := s.withPostCounts(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id uint, patch domain.CategoryPatch) (*domain.Category, error) {
	if patch.Name != nil && blank(*patch.Name) {
		return nil, invalid("category name cannot be empty")
	}
	if patch.Slug != nil && blank(*patch.Slug) {
		return nil, invalid("category slug cannot be empty")
	}
	if err := checkSlug(patch.Slug); err != nil {
		return nil, err
	}
	if patch.Slug != nil {
		trimmed := strings.TrimSpace(*patch.Slug)
		patch.Slug = &trimmed
	}
	updated, err := s.store.UpdateCategory(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update category %d: %w", id, err)
	}
	if err := s.withPostCounts(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCategory удаляет категорию вместе с темами и их комментариями.
func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	s.log.Info().Uint("id", id).Msg("category deleted")
	return nil
}

// === Posts ===

// ListPosts возвращает страницу тем: закрепленные первыми, затем новые.
func (s *Service) ListPosts(ctx context.Context, filter domain.PostFilter) (*domain.PostPage, error) {
	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	q := storage.PostQuery{
		CategoryID: filter.CategoryID,
		Offset:     (page - 1) * pageSize,
		Limit:      pageSize,
	}
	if filter.Search != nil {
		q.Search = strings.TrimSpace(*filter.Search)
	}

	posts, total, err := s.store.ListPosts(ctx, q)
	if err == nil {
		err = s.withPostRelations(ctx, posts...)
	}
	if err != nil {
		s.fallback("posts", err)
		fallback := s.sample.posts(func(p *domain.Post) bool {
			return filter.CategoryID == nil || p.CategoryID == *filter.CategoryID
		})
		return &domain.PostPage{
			Posts:    fallback,
			Total:    int64(len(fallback)),
			Page:     1,
			PageSize: DefaultPageSize,
			HasMore:  false,
		}, nil
	}

	return &domain.PostPage{
		Posts:    posts,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  total > int64(page)*int64(pageSize),
	}, nil
}

// ListPinnedPosts возвращает закрепленные темы, новые первыми.
func (s *Service) ListPinnedPosts(ctx context.Context) ([]*domain.Post, error) {
	posts, err := s.store.ListPinnedPosts(ctx)
	if err == nil {
		err = s.withPostRelations(ctx, posts...)
	}
	if err != nil {
		s.fallback("pinnedPosts", err)
		return s.sample.posts(func(p *domain.Post) bool { return p.IsPinned }), nil
	}
	return posts, nil
}

// GetPost ищет тему по id или slug вместе с категорией. Отсутствующая тема - (nil, nil).
func (s *Service) GetPost(ctx context.Context, sel domain.Selector) (*domain.Post, error) {
	var (
		post *domain.Post
		err  error
	)
	switch {
	case sel.ID != nil && sel.Slug == nil:
		post, err = absent(s.store.GetPostByID(ctx, *sel.ID))
	case sel.Slug != nil && sel.ID == nil:
		post, err = absent(s.store.GetPostBySlug(ctx, *sel.Slug))
	default:
		return nil, domain.ErrMissingSelector
	}
	if err != nil || post == nil {
		return nil, err
	}
	if err := s.withPostRelations(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *Service) CreatePost(ctx context.Context, input domain.NewPost) (*domain.Post, error) {
	switch {
	case blank(input.Title):
		return nil, invalid("post title is required")
	case blank(input.Content):
		return nil, invalid("post content is required")
	case blank(input.Author):
		return nil, invalid("post author is required")
	case input.CategoryID == 0:
		return nil, invalid("post category is required")
	}
	if err := checkSlug(&input.Slug); err != nil {
		return nil, err
	}

	post := &domain.Post{
		Title:       strings.TrimSpace(input.Title),
		Slug:        strings.TrimSpace(input.Slug),
		Content:     input.Content,
		Excerpt:     input.Excerpt,
		Author:      strings.TrimSpace(input.Author),
		AuthorEmail: input.AuthorEmail,
		CoverImage:  input.CoverImage,
		CategoryID:  input.CategoryID,
	}
	if post.Slug == "" {
		post.Slug = slug.FromTitle(post.Title, "post")
	}
	if post.Excerpt == nil || blank(*post.Excerpt) {
		excerpt := makeExcerpt(post.Content)
		post.Excerpt = &excerpt
	}
	if input.IsPinned != nil {
		post.IsPinned = *input.IsPinned
	}
	if input.IsLocked != nil {
		post.IsLocked = *input.IsLocked
	}

	created, err := s.store.CreatePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	s.log.Info().Uint("id", created.ID).Str("slug", created.Slug).Msg("post created")
	if err := s.withPostRelations(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) UpdatePost(ctx context.Context, id uint, patch domain.PostPatch) (*domain.Post, error) {
	switch {
	case patch.Title != nil && blank(*patch.Title):
		return nil, invalid("post title cannot be empty")
	case patch.Slug != nil && blank(*patch.Slug):
		return nil, invalid("post slug cannot be empty")
	case patch.Content != nil && blank(*patch.Content):
		return nil, invalid("post content cannot be empty")
	case patch.Author != nil && blank(*patch.Author):
		return nil, invalid("post author cannot be empty")
	}
	if err := checkSlug(patch.Slug); err != nil {
		return nil, err
	}
	if patch.Slug != nil {
		trimmed := strings.TrimSpace(*patch.Slug)
		patch.Slug = &trimmed
	}

	updated, err := s.store.UpdatePost(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}
	if err := s.withPostRelations(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeletePost удаляет тему вместе с комментариями.
func (s *Service) DeletePost(ctx context.Context, id uint) error {
	if err := s.store.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post %d: %w", id, err)
	}
	s.log.Info().Uint("id", id).Msg("post deleted")
	return nil
}

// IncrementPostViews увеличивает счетчик просмотров ровно на 1.
func (s *Service) IncrementPostViews(ctx context.Context, id uint) (*domain.Post, error) {
	post, err := s.store.IncrementPostViews(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("increment views of post %d: %w", id, err)
	}
	if err := s.withPostRelations(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// === Comments ===

// ListComments возвращает комментарии верхнего уровня (новые первыми) с ответами (старые первыми).
func (s *Service) ListComments(ctx context.Context, postID uint) ([]*domain.Comment, error) {
	comments, err := s.store.GetTopLevelComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments of post %d: %w", postID, err)
	}
	if err := s.withReplies(ctx, comments...); err != nil {
		return nil, err
	}
	return comments, nil
}

// GetComment возвращает комментарий с ответами. Отсутствующий комментарий - (nil, nil).
func (s *Service) GetComment(ctx context.Context, id uint) (*domain.Comment, error) {
	comment, err := absent(s.store.GetCommentByID(ctx, id))
	if err != nil || comment == nil {
		return nil, err
	}
	if err := s.withReplies(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

func validateContent(content string) error {
	if blank(content) {
		return invalid("comment content cannot be empty")
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return invalid("comment content is too long")
	}
	return nil
}

func (s *Service) CreateComment(ctx context.Context, input domain.NewComment) (*domain.Comment, error) {
	if err := validateContent(input.Content); err != nil {
		return nil, err
	}
	if blank(input.Author) {
		return nil, invalid("comment author is required")
	}

	comment := &domain.Comment{
		Content:     strings.TrimSpace(input.Content),
		Author:      strings.TrimSpace(input.Author),
		AuthorEmail: input.AuthorEmail,
		PostID:      input.PostID,
		ParentID:    input.ParentID,
	}
	created, err := s.store.CreateComment(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	if err := s.withReplies(ctx, created); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) UpdateComment(ctx context.Context, id uint, patch domain.CommentPatch) (*domain.Comment, error) {
	if patch.Content != nil {
		if err := validateContent(*patch.Content); err != nil {
			return nil, err
		}
		content := strings.TrimSpace(*patch.Content)
		patch.Content = &content
	}
	updated, err := s.store.UpdateComment(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update comment %d: %w", id, err)
	}
	if err := s.withReplies(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteComment удаляет комментарий вместе с ответами.
func (s *Service) DeleteComment(ctx context.Context, id uint) error {
	if err := s.store.DeleteComment(ctx, id); err != nil {
		return fmt.Errorf("delete comment %d: %w", id, err)
	}
	return nil
}

// === derived fields ===

func uniqueIDs(n int, id func(int) uint) []uint {
	seen := make(map[uint]bool, n)
	ids := make([]uint, 0, n)
	for i := 0; i < n; i++ {
		if v := id(i); !seen[v] {
			seen[v] = true
			ids = append(ids, v)
		}
	}
	return ids
}

func (s *Service) withPostCounts(ctx context.Context, categories ...*domain.Category) error {
	if len(categories) == 0 {
		return nil
	}
	ids := uniqueIDs(len(categories), func(i int) uint { return categories[i].ID })
	counts, err := s.relations(ctx).PostCounts(ctx, ids)
	if err != nil {
		return fmt.Errorf("count posts: %w", err)
	}
	for _, c := range categories {
		n := counts[c.ID]
		c.PostCount = &n
	}
	return nil
}

// withPostRelations заполняет commentCount тем и postCount их категорий.
func (s *Service) withPostRelations(ctx context.Context, posts ...*domain.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := uniqueIDs(len(posts), func(i int) uint { return posts[i].ID })
	counts, err := s.relations(ctx).CommentCounts(ctx, ids)
	if err != nil {
		return fmt.Errorf("count comments: %w", err)
	}

	var categories []*domain.Category
	for _, p := range posts {
		n := counts[p.ID]
		p.CommentCount = &n
		if p.Category != nil {
			categories = append(categories, p.Category)
		}
	}
	return s.withPostCounts(ctx, categories...)
}

// withReplies подставляет прямые ответы. Ответы отдаются без собственных ответов: вложенность одна.
func (s *Service) withReplies(ctx context.Context, comments ...*domain.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := uniqueIDs(len(comments), func(i int) uint { return comments[i].ID })
	replies, err := s.relations(ctx).Replies(ctx, ids)
	if err != nil {
		return fmt.Errorf("load replies: %w", err)
	}
	for _, c := range comments {
		loaded := replies[c.ID]
		c.Replies = make([]*domain.Comment, len(loaded))
		for i, r := range loaded {
			reply := *r
			reply.Replies = []*domain.Comment{}
			c.Replies[i] = &reply
		}
	}
	return nil
}
