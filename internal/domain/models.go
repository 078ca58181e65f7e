package domain

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultCategoryColor - фирменный цвет, которым красится категория без явного цвета.
const DefaultCategoryColor = "#1d2088"

// BlockKey - ключ контент-блока. Набор ключей закрыт.
type BlockKey string

const (
	BlockHomePage BlockKey = "home-page"
	BlockLogo     BlockKey = "logo"
	BlockColor    BlockKey = "color"
)

// BlockKeys перечисляет все известные ключи контент-блоков.
var BlockKeys = []BlockKey{BlockHomePage, BlockLogo, BlockColor}

// ContentBlock - сохраненный контент-блок: одна строка на ключ, payload хранится как JSON.
type ContentBlock struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Key       BlockKey       `json:"key" gorm:"type:varchar(64);uniqueIndex;not null"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Category - раздел форума.
type Category struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(255);uniqueIndex;not null"`
	Slug        string    `json:"slug" gorm:"type:varchar(255);uniqueIndex;not null"`
	Description *string   `json:"description"`
	Icon        *string   `json:"icon" gorm:"type:varchar(64)"`
	Color       string    `json:"color" gorm:"type:varchar(32);not null"`
	Order       int       `json:"order" gorm:"column:sort_order;not null;default:0"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// PostCount вычисляется при чтении и не хранится.
	PostCount *int64 `json:"postCount,omitempty" gorm:"-"`
}

// Post представляет тему форума.
type Post struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Slug        string    `json:"slug" gorm:"type:varchar(255);uniqueIndex;not null"`
	Content     string    `json:"content" gorm:"type:text;not null"`
	Excerpt     *string   `json:"excerpt" gorm:"type:text"`
	Author      string    `json:"author" gorm:"type:varchar(255);not null"`
	AuthorEmail *string   `json:"authorEmail" gorm:"type:varchar(255)"`
	CoverImage  *string   `json:"coverImage" gorm:"type:text"`
	Views       int64     `json:"views" gorm:"not null;default:0"`
	IsPinned    bool      `json:"isPinned" gorm:"not null;default:false;index"`
	IsLocked    bool      `json:"isLocked" gorm:"not null;default:false"`
	CategoryID  uint      `json:"categoryId" gorm:"not null;index"`
	Category    *Category `json:"category,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// CommentCount вычисляется при чтении и не хранится.
	CommentCount *int64 `json:"commentCount,omitempty" gorm:"-"`
}

// Comment представляет комментарий к теме. ParentID == nil - комментарий верхнего уровня.
type Comment struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Content     string    `json:"content" gorm:"type:varchar(2000);not null"`
	Author      string    `json:"author" gorm:"type:varchar(255);not null"`
	AuthorEmail *string   `json:"authorEmail" gorm:"type:varchar(255)"`
	PostID      uint      `json:"postId" gorm:"not null;index"`
	ParentID    *uint     `json:"parentId" gorm:"index"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Post   *Post    `json:"-" gorm:"constraint:OnDelete:CASCADE"` // gorm only
	Parent *Comment `json:"-" gorm:"constraint:OnDelete:CASCADE"` // gorm only

	// Replies заполняется при чтении: прямые ответы, старые первыми.
	Replies []*Comment `json:"replies" gorm:"-"`
}
