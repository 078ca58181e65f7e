package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UkralStul/sitecms/internal/domain"
	"github.com/UkralStul/sitecms/internal/storage"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store реализует интерфейс Storage поверх gorm. В продакшене это PostgreSQL,
// в тестах - SQLite в памяти.
type Store struct {
	db *gorm.DB
}

// New оборачивает готовое подключение gorm. Схема создается миграциями (см. internal/database)
// или AutoMigrate.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate создает таблицы по моделям. Используется для SQLite и локальной разработки.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.ContentBlock{}, &domain.Category{}, &domain.Post{}, &domain.Comment{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return translate(err)
	}
	return translate(sqlDB.PingContext(ctx))
}

// translate приводит ошибки gorm к ошибкам пакета storage.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, storage.ErrConflict),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrPostLocked):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", storage.ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
}

// affected превращает "ни одной строки" в ErrNotFound.
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// === Content Block Methods ===

func (s *Store) EnsureBlock(ctx context.Context, key domain.BlockKey, defaults []byte) (*domain.ContentBlock, error) {
	block := domain.ContentBlock{Key: key, Payload: datatypes.JSON(defaults)}
	// INSERT ... ON CONFLICT (key) DO NOTHING - единственная строка на ключ даже при гонке
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "key"}}, DoNothing: true}).
		Create(&block).Error
	if err != nil {
		return nil, translate(err)
	}

	var stored domain.ContentBlock
	if err := s.db.WithContext(ctx).Where(&domain.ContentBlock{Key: key}).First(&stored).Error; err != nil {
		return nil, translate(err)
	}
	return &stored, nil
}

func (s *Store) UpdateBlockPayload(ctx context.Context, id uint, payload []byte) (*domain.ContentBlock, error) {
	res := s.db.WithContext(ctx).Model(&domain.ContentBlock{}).Where("id = ?", id).
		Update("payload", datatypes.JSON(payload))
	if err := affected(res); err != nil {
		return nil, err
	}

	var block domain.ContentBlock
	if err := s.db.WithContext(ctx).First(&block, id).Error; err != nil {
		return nil, translate(err)
	}
	return &block, nil
}

// === Category Methods ===

func (s *Store) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	var categories []*domain.Category
	err := s.db.WithContext(ctx).Order("sort_order ASC").Order("id ASC").Find(&categories).Error
	return categories, translate(err)
}

func (s *Store) GetCategoryByID(ctx context.Context, id uint) (*domain.Category, error) {
	var category domain.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	var category domain.Category
	if err := s.db.WithContext(ctx).First(&category, "slug = ?", slug).Error; err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (s *Store) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, translate(err)
	}
	// GORM заполнит ID и временные метки после создания
	return category, nil
}

func (s *Store) UpdateCategory(ctx context.Context, id uint, patch domain.CategoryPatch) (*domain.Category, error) {
	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Slug != nil {
		updates["slug"] = *patch.Slug
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Icon != nil {
		updates["icon"] = *patch.Icon
	}
	if patch.Color != nil {
		updates["color"] = *patch.Color
	}
	if patch.Order != nil {
		updates["sort_order"] = *patch.Order
	}

	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&domain.Category{}).Where("id = ?", id).Updates(updates)
		if err := affected(res); err != nil {
			return nil, err
		}
	}
	return s.GetCategoryByID(ctx, id)
}

// DeleteCategory удаляет категорию; темы и их комментарии удаляются каскадом по внешним ключам.
func (s *Store) DeleteCategory(ctx context.Context, id uint) error {
	return affected(s.db.WithContext(ctx).Delete(&domain.Category{}, id))
}

// === Post Methods ===

// escapeLike экранирует спецсимволы LIKE, чтобы поиск шел по буквальной подстроке.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func postFilter(q storage.PostQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if q.CategoryID != nil {
			db = db.Where("category_id = ?", *q.CategoryID)
		}
		if q.Search != "" {
			pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
			db = db.Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\')`, pattern, pattern)
		}
		return db
	}
}

func (s *Store) ListPosts(ctx context.Context, q storage.PostQuery) ([]*domain.Post, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&domain.Post{}).Scopes(postFilter(q)).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var posts []*domain.Post
	err := s.db.WithContext(ctx).
		Scopes(postFilter(q)).
		Preload("Category").
		Order("is_pinned DESC").
		Order("created_at DESC").
		Order("id DESC").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return posts, total, nil
}

func (s *Store) ListPinnedPosts(ctx context.Context) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.db.WithContext(ctx).
		Preload("Category").
		Where("is_pinned = ?", true).
		Order("created_at DESC").
		Order("id DESC").
		Find(&posts).Error
	return posts, translate(err)
}

func (s *Store) GetPostByID(ctx context.Context, id uint) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).Preload("Category").First(&post, id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (s *Store) GetPostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).Preload("Category").First(&post, "slug = ?", slug).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func categoryExists(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&domain.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("category %d: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := categoryExists(tx, post.CategoryID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(post).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return s.GetPostByID(ctx, post.ID)
}

func (s *Store) UpdatePost(ctx context.Context, id uint, patch domain.PostPatch) (*domain.Post, error) {
	updates := map[string]interface{}{}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Slug != nil {
		updates["slug"] = *patch.Slug
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.Excerpt != nil {
		updates["excerpt"] = *patch.Excerpt
	}
	if patch.Author != nil {
		updates["author"] = *patch.Author
	}
	if patch.AuthorEmail != nil {
		updates["author_email"] = *patch.AuthorEmail
	}
	if patch.CoverImage != nil {
		updates["cover_image"] = *patch.CoverImage
	}
	if patch.CategoryID != nil {
		updates["category_id"] = *patch.CategoryID
	}
	if patch.IsPinned != nil {
		updates["is_pinned"] = *patch.IsPinned
	}
	if patch.IsLocked != nil {
		updates["is_locked"] = *patch.IsLocked
	}

	if len(updates) > 0 {
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if patch.CategoryID != nil {
				if err := categoryExists(tx, *patch.CategoryID); err != nil {
					return err
				}
			}
			return affected(tx.Model(&domain.Post{}).Where("id = ?", id).Updates(updates))
		})
		if err != nil {
			return nil, translate(err)
		}
	}
	return s.GetPostByID(ctx, id)
}

// DeletePost удаляет тему; комментарии удаляются каскадом.
func (s *Store) DeletePost(ctx context.Context, id uint) error {
	return affected(s.db.WithContext(ctx).Delete(&domain.Post{}, id))
}

func (s *Store) IncrementPostViews(ctx context.Context, id uint) (*domain.Post, error) {
	// UPDATE posts SET views = views + 1: инкремент выполняет сама база, без чтения-записи
	res := s.db.WithContext(ctx).Model(&domain.Post{}).Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if err := affected(res); err != nil {
		return nil, err
	}
	return s.GetPostByID(ctx, id)
}

// === Comment Methods ===

func (s *Store) GetTopLevelComments(ctx context.Context, postID uint) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ? AND parent_id IS NULL", postID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&comments).Error
	return comments, translate(err)
}

func (s *Store) GetCommentByID(ctx context.Context, id uint) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	// Проверяем пост, блокировку и родителя в одной транзакции с вставкой
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.Post
		if err := tx.Select("id", "is_locked").First(&post, comment.PostID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("post %d: %w", comment.PostID, storage.ErrNotFound)
			}
			return err
		}
		if post.IsLocked {
			return domain.ErrPostLocked
		}

		if comment.ParentID != nil {
			var parent domain.Comment
			if err := tx.Select("id", "post_id").First(&parent, *comment.ParentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("parent comment %d: %w", *comment.ParentID, storage.ErrNotFound)
				}
				return err
			}
			if parent.PostID != comment.PostID {
				return fmt.Errorf("%w: parent comment belongs to another post", domain.ErrInvalidInput)
			}
		}

		return tx.Omit(clause.Associations).Create(comment).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return comment, nil
}

func (s *Store) UpdateComment(ctx context.Context, id uint, patch domain.CommentPatch) (*domain.Comment, error) {
	if patch.Content != nil {
		res := s.db.WithContext(ctx).Model(&domain.Comment{}).Where("id = ?", id).
			Update("content", *patch.Content)
		if err := affected(res); err != nil {
			return nil, err
		}
	}
	return s.GetCommentByID(ctx, id)
}

// DeleteComment удаляет комментарий; ответы удаляются каскадом по parent_id.
func (s *Store) DeleteComment(ctx context.Context, id uint) error {
	return affected(s.db.WithContext(ctx).Delete(&domain.Comment{}, id))
}

// === Dataloader Methods ===

type countRow struct {
	ID    uint
	Total int64
}

func (s *Store) countBy(ctx context.Context, model interface{}, column string, ids []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(ids))
	for _, id := range ids {
		result[id] = 0
	}
	if len(ids) == 0 {
		return result, nil
	}

	var rows []countRow
	err := s.db.WithContext(ctx).Model(model).
		Select(column+" AS id, COUNT(*) AS total").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	for _, r := range rows {
		result[r.ID] = r.Total
	}
	return result, nil
}

func (s *Store) CountPostsByCategoryIDs(ctx context.Context, categoryIDs []uint) (map[uint]int64, error) {
	return s.countBy(ctx, &domain.Post{}, "category_id", categoryIDs)
}

func (s *Store) CountCommentsByPostIDs(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	return s.countBy(ctx, &domain.Comment{}, "post_id", postIDs)
}

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []uint) (map[uint][]*domain.Comment, error) {
	result := make(map[uint][]*domain.Comment, len(parentIDs))
	if len(parentIDs) == 0 {
		return result, nil
	}

	var comments []*domain.Comment
	// Загружаем ответы для всех родителей одним запросом, старые первыми
	err := s.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("parent_id, created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, translate(err)
	}

	for _, c := range comments {
		if c.ParentID != nil {
			result[*c.ParentID] = append(result[*c.ParentID], c)
		}
	}
	return result, nil
}
