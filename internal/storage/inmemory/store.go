package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/UkralStul/sitecms/internal/domain"
	"github.com/UkralStul/sitecms/internal/storage"
)

// Store реализует интерфейс Storage в памяти. Наружу отдаются только копии записей.
type Store struct {
	mu     sync.RWMutex
	nextID uint

	blocks     map[domain.BlockKey]*domain.ContentBlock
	categories map[uint]*domain.Category
	posts      map[uint]*domain.Post
	comments   map[uint]*domain.Comment

	// now подменяется в тестах
	now func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		blocks:     make(map[domain.BlockKey]*domain.ContentBlock),
		categories: make(map[uint]*domain.Category),
		posts:      make(map[uint]*domain.Post),
		comments:   make(map[uint]*domain.Comment),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

// stamp выставляет CreatedAt, если его не задали явно (как это делает gorm).
func (s *Store) stamp(created *time.Time, updated *time.Time) {
	now := s.now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

// === Content Block Methods ===

func (s *Store) EnsureBlock(ctx context.Context, key domain.BlockKey, defaults []byte) (*domain.ContentBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	block, ok := s.blocks[key]
	if !ok {
		block = &domain.ContentBlock{ID: s.id(), Key: key, Payload: append([]byte(nil), defaults...)}
		s.stamp(&block.CreatedAt, &block.UpdatedAt)
		s.blocks[key] = block
	}
	return copyBlock(block), nil
}

func (s *Store) UpdateBlockPayload(ctx context.Context, id uint, payload []byte) (*domain.ContentBlock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, block := range s.blocks {
		if block.ID == id {
			block.Payload = append([]byte(nil), payload...)
			block.UpdatedAt = s.now()
			return copyBlock(block), nil
		}
	}
	return nil, storage.ErrNotFound
}

// === Category Methods ===

func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		result = append(result, copyCategory(c))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Order != result[j].Order {
			return result[i].Order < result[j].Order
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) GetCategoryByID(ctx context.Context, id uint) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyCategory(c), nil
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.categories {
		if c.Slug == slug {
			return copyCategory(c), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) categoryConflict(id uint, name, slug string) error {
	for _, c := range s.categories {
		if c.ID != id && (c.Name == name || c.Slug == slug) {
			return fmt.Errorf("%w: category name or slug already taken", storage.ErrConflict)
		}
	}
	return nil
}

func (s *Store) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.categoryConflict(0, category.Name, category.Slug); err != nil {
		return nil, err
	}
	category.ID = s.id()
	s.stamp(&category.CreatedAt, &category.UpdatedAt)
	s.categories[category.ID] = copyCategory(category)
	return category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id uint, patch domain.CategoryPatch) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.categories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	next := copyCategory(current)
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Slug != nil {
		next.Slug = *patch.Slug
	}
	if patch.Description != nil {
		next.Description = ptr(*patch.Description)
	}
	if patch.Icon != nil {
		next.Icon = ptr(*patch.Icon)
	}
	if patch.Color != nil {
		next.Color = *patch.Color
	}
	if patch.Order != nil {
		next.Order = *patch.Order
	}
	if err := s.categoryConflict(id, next.Name, next.Slug); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now()
	s.categories[id] = next
	return copyCategory(next), nil
}

func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.categories, id)
	// Каскад: темы категории и их комментарии
	for postID, p := range s.posts {
		if p.CategoryID == id {
			s.deletePostLocked(postID)
		}
	}
	return nil
}

// === Post Methods ===

func (s *Store) matches(p *domain.Post, q storage.PostQuery) bool {
	if q.CategoryID != nil && p.CategoryID != *q.CategoryID {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		return strings.Contains(strings.ToLower(p.Title), needle) ||
			strings.Contains(strings.ToLower(p.Content), needle)
	}
	return true
}

// sortPosts: закрепленные первыми, дальше по убыванию даты создания.
func sortPosts(posts []*domain.Post) {
	sort.Slice(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if a.IsPinned != b.IsPinned {
			return a.IsPinned
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

func (s *Store) ListPosts(ctx context.Context, q storage.PostQuery) ([]*domain.Post, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filtered := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if s.matches(p, q) {
			filtered = append(filtered, p)
		}
	}
	sortPosts(filtered)

	total := int64(len(filtered))
	start := q.Offset
	if start < 0 {
		start = 0
	}
	if start >= len(filtered) {
		return []*domain.Post{}, total, nil
	}
	end := start + q.Limit
	if end > len(filtered) {
		end = len(filtered)
	}

	page := make([]*domain.Post, 0, end-start)
	for _, p := range filtered[start:end] {
		page = append(page, s.withCategory(p))
	}
	return page, total, nil
}

func (s *Store) ListPinnedPosts(ctx context.Context) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pinned := make([]*domain.Post, 0)
	for _, p := range s.posts {
		if p.IsPinned {
			pinned = append(pinned, p)
		}
	}
	sortPosts(pinned)

	result := make([]*domain.Post, len(pinned))
	for i, p := range pinned {
		result[i] = s.withCategory(p)
	}
	return result, nil
}

func (s *Store) GetPostByID(ctx context.Context, id uint) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.withCategory(p), nil
}

func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.posts {
		if p.Slug == slug {
			return s.withCategory(p), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) slugTaken(id uint, slug string) bool {
	for _, p := range s.posts {
		if p.ID != id && p.Slug == slug {
			return true
		}
	}
	return false
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[post.CategoryID]; !ok {
		return nil, fmt.Errorf("category %d: %w", post.CategoryID, storage.ErrNotFound)
	}
	if s.slugTaken(0, post.Slug) {
		return nil, fmt.Errorf("%w: post slug %q already taken", storage.ErrConflict, post.Slug)
	}

	stored := copyPost(post)
	stored.ID = s.id()
	stored.Category = nil
	s.stamp(&stored.CreatedAt, &stored.UpdatedAt)
	s.posts[stored.ID] = stored
	return s.withCategory(stored), nil
}

func (s *Store) UpdatePost(ctx context.Context, id uint, patch domain.PostPatch) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	next := copyPost(current)
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Slug != nil {
		if s.slugTaken(id, *patch.Slug) {
			return nil, fmt.Errorf("%w: post slug %q already taken", storage.ErrConflict, *patch.Slug)
		}
		next.Slug = *patch.Slug
	}
	if patch.Content != nil {
		next.Content = *patch.Content
	}
	if patch.Excerpt != nil {
		next.Excerpt = ptr(*patch.Excerpt)
	}
	if patch.Author != nil {
		next.Author = *patch.Author
	}
	if patch.AuthorEmail != nil {
		next.AuthorEmail = ptr(*patch.AuthorEmail)
	}
	if patch.CoverImage != nil {
		next.CoverImage = ptr(*patch.CoverImage)
	}
	if patch.CategoryID != nil {
		if _, ok := s.categories[*patch.CategoryID]; !ok {
			return nil, fmt.Errorf("category %d: %w", *patch.CategoryID, storage.ErrNotFound)
		}
		next.CategoryID = *patch.CategoryID
	}
	if patch.IsPinned != nil {
		next.IsPinned = *patch.IsPinned
	}
	if patch.IsLocked != nil {
		next.IsLocked = *patch.IsLocked
	}
	next.UpdatedAt = s.now()
	s.posts[id] = next
	return s.withCategory(next), nil
}

func (s *Store) DeletePost(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return storage.ErrNotFound
	}
	s.deletePostLocked(id)
	return nil
}

func (s *Store) deletePostLocked(id uint) {
	delete(s.posts, id)
	for commentID, c := range s.comments {
		if c.PostID == id {
			delete(s.comments, commentID)
		}
	}
}

func (s *Store) IncrementPostViews(ctx context.Context, id uint) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p.Views++
	return s.withCategory(p), nil
}

// === Comment Methods ===

func (s *Store) GetTopLevelComments(ctx context.Context, postID uint) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Comment, 0)
	for _, c := range s.comments {
		if c.PostID == postID && c.ParentID == nil {
			result = append(result, copyComment(c))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id uint) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyComment(c), nil
}

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверка поста
	post, ok := s.posts[comment.PostID]
	if !ok {
		return nil, fmt.Errorf("post %d: %w", comment.PostID, storage.ErrNotFound)
	}
	if post.IsLocked {
		return nil, domain.ErrPostLocked
	}

	// Проверка родительского комментария
	if comment.ParentID != nil {
		parent, ok := s.comments[*comment.ParentID]
		if !ok {
			return nil, fmt.Errorf("parent comment %d: %w", *comment.ParentID, storage.ErrNotFound)
		}
		if parent.PostID != comment.PostID {
			return nil, fmt.Errorf("%w: parent comment belongs to another post", domain.ErrInvalidInput)
		}
	}

	stored := copyComment(comment)
	stored.ID = s.id()
	stored.Replies = nil
	s.stamp(&stored.CreatedAt, &stored.UpdatedAt)
	s.comments[stored.ID] = stored
	return copyComment(stored), nil
}

func (s *Store) UpdateComment(ctx context.Context, id uint, patch domain.CommentPatch) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if patch.Content != nil {
		c.Content = *patch.Content
		c.UpdatedAt = s.now()
	}
	return copyComment(c), nil
}

func (s *Store) DeleteComment(ctx context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return storage.ErrNotFound
	}
	s.deleteCommentLocked(id)
	return nil
}

func (s *Store) deleteCommentLocked(id uint) {
	delete(s.comments, id)
	for childID, c := range s.comments {
		if c.ParentID != nil && *c.ParentID == id {
			s.deleteCommentLocked(childID)
		}
	}
}

// === Dataloader Methods ===

func (s *Store) CountPostsByCategoryIDs(ctx context.Context, categoryIDs []uint) (map[uint]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[uint]int64, len(categoryIDs))
	for _, id := range categoryIDs {
		result[id] = 0
	}
	for _, p := range s.posts {
		if _, ok := result[p.CategoryID]; ok {
			result[p.CategoryID]++
		}
	}
	return result, nil
}

func (s *Store) CountCommentsByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[uint]int64, len(postIDs))
	for _, id := range postIDs {
		result[id] = 0
	}
	for _, c := range s.comments {
		if _, ok := result[c.PostID]; ok {
			result[c.PostID]++
		}
	}
	return result, nil
}

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []uint) (map[uint][]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[uint][]*domain.Comment, len(parentIDs))
	wanted := make(map[uint]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = true
	}
	for _, c := range s.comments {
		if c.ParentID != nil && wanted[*c.ParentID] {
			results[*c.ParentID] = append(results[*c.ParentID], copyComment(c))
		}
	}
	// Важно: ответы отдаются в хронологическом порядке
	for _, children := range results {
		sort.Slice(children, func(i, j int) bool {
			if !children[i].CreatedAt.Equal(children[j].CreatedAt) {
				return children[i].CreatedAt.Before(children[j].CreatedAt)
			}
			return children[i].ID < children[j].ID
		})
	}
	return results, nil
}

// === helpers ===

func (s *Store) withCategory(p *domain.Post) *domain.Post {
	out := copyPost(p)
	if c, ok := s.categories[p.CategoryID]; ok {
		out.Category = copyCategory(c)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func copyBlock(b *domain.ContentBlock) *domain.ContentBlock {
	out := *b
	out.Payload = append([]byte(nil), b.Payload...)
	return &out
}

func copyCategory(c *domain.Category) *domain.Category {
	out := *c
	out.PostCount = nil
	return &out
}

func copyPost(p *domain.Post) *domain.Post {
	out := *p
	out.Category = nil
	out.CommentCount = nil
	return &out
}

func copyComment(c *domain.Comment) *domain.Comment {
	out := *c
	out.Post = nil
	out.Parent = nil
	out.Replies = nil
	return &out
}
