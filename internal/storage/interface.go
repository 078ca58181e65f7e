package storage

import (
	"context"
	"errors"

	"github.com/UkralStul/sitecms/internal/domain"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrConflict - нарушено ограничение уникальности (slug, name).
	ErrConflict = errors.New("record conflicts with an existing one")
	// ErrUnavailable - хранилище недоступно или вернуло неожиданную ошибку.
	ErrUnavailable = errors.New("storage unavailable")
)

// PostQuery - аргументы выборки тем.
type PostQuery struct {
	CategoryID *uint
	// Search ищется подстрокой в title или content без учета регистра.
	Search string
	Offset int
	Limit  int
}

// ContentBlocks - контракт хранилища контент-блоков.
type ContentBlocks interface {
	// EnsureBlock атомарно создает блок с payload по умолчанию, если его нет, и возвращает текущую запись.
	EnsureBlock(ctx context.Context, key domain.BlockKey, defaults []byte) (*domain.ContentBlock, error)
	UpdateBlockPayload(ctx context.Context, id uint, payload []byte) (*domain.ContentBlock, error)
}

// Forum - контракт хранилища форума.
type Forum interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategoryByID(ctx context.Context, id uint) (*domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id uint, patch domain.CategoryPatch) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id uint) error

	// ListPosts возвращает страницу тем (закрепленные первыми, затем новые) и общее количество.
	ListPosts(ctx context.Context, q PostQuery) ([]*domain.Post, int64, error)
	ListPinnedPosts(ctx context.Context) ([]*domain.Post, error)
	GetPostByID(ctx context.Context, id uint) (*domain.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error)
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	UpdatePost(ctx context.Context, id uint, patch domain.PostPatch) (*domain.Post, error)
	DeletePost(ctx context.Context, id uint) error
	// IncrementPostViews увеличивает счетчик просмотров на 1 одной атомарной операцией.
	IncrementPostViews(ctx context.Context, id uint) (*domain.Post, error)

	// GetTopLevelComments - комментарии без родителя, новые первыми.
	GetTopLevelComments(ctx context.Context, postID uint) ([]*domain.Comment, error)
	GetCommentByID(ctx context.Context, id uint) (*domain.Comment, error)
	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	UpdateComment(ctx context.Context, id uint, patch domain.CommentPatch) (*domain.Comment, error)
	// DeleteComment удаляет комментарий вместе с ответами на него.
	DeleteComment(ctx context.Context, id uint) error

	// Методы для Dataloader'ов
	CountPostsByCategoryIDs(ctx context.Context, categoryIDs []uint) (map[uint]int64, error)
	CountCommentsByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int64, error)
	GetCommentsByParentIDs(ctx context.Context, parentIDs []uint) (map[uint][]*domain.Comment, error)
}

// Storage определяет контракт для хранилищ.
type Storage interface {
	ContentBlocks
	Forum

	Ping(ctx context.Context) error
}
