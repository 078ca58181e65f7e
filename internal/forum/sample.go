package forum

import (
	"time"

	"github.com/UkralStul/sitecms/internal/domain"
)

// SampleData - встроенные демо-данные, которые отдаются спискам, когда хранилище недоступно.
// Сервис не изменяет их и отдает наружу только копии.
type SampleData struct {
	Categories []domain.Category
	Posts      []domain.Post
}

func strPtr(s string) *string { return &s }
func int64Ptr(n int64) *int64 { return &n }

// DefaultSampleData строит набор демо-данных; now - момент старта процесса.
func DefaultSampleData(now time.Time) SampleData {
	categories := []domain.Category{
		{
			ID: 1, Name: "Technology", Slug: "technology",
			Description: strPtr("Tech talk and engineering topics"), Icon: strPtr("💻"),
			Color: domain.DefaultCategoryColor, Order: 0,
			CreatedAt: now, UpdatedAt: now, PostCount: int64Ptr(3),
		},
		{
			ID: 2, Name: "Design", Slug: "design",
			Description: strPtr("Design inspiration and portfolios"), Icon: strPtr("🎨"),
			Color: "#e91e63", Order: 1,
			CreatedAt: now, UpdatedAt: now, PostCount: int64Ptr(2),
		},
		{
			ID: 3, Name: "Life", Slug: "life",
			Description: strPtr("Notes from everyday life"), Icon: strPtr("📝"),
			Color: "#4caf50", Order: 2,
			CreatedAt: now, UpdatedAt: now, PostCount: int64Ptr(1),
		},
	}

	yesterday := now.Add(-24 * time.Hour)
	posts := []domain.Post{
		{
			ID:    1,
			Title: "Welcome to the forum!",
			Slug:  "welcome-to-forum",
			Content: "<p>This is a sample post. Once the database is configured you can create real posts.</p>" +
				"<p>Features:</p><ul><li>Rich text</li><li>Comments and replies</li>" +
				"<li>Categories</li><li>Pinned and locked posts</li></ul>",
			Excerpt:      strPtr("Welcome to the forum! Rich text, comments, categories and more."),
			Author:       "Admin",
			AuthorEmail:  strPtr("admin@example.com"),
			CoverImage:   strPtr("https://images.unsplash.com/photo-1522071820081-009f0129c71c?w=800"),
			Views:        42,
			IsPinned:     true,
			CategoryID:   1,
			CreatedAt:    now,
			UpdatedAt:    now,
			CommentCount: int64Ptr(3),
		},
		{
			ID:    2,
			Title: "How to set up the database",
			Slug:  "how-to-setup-database",
			Content: "<p>To use real data, configure PostgreSQL:</p>" +
				"<ol><li>Set DATABASE_URL in .env</li><li>Start the server with STORAGE=postgres</li><li>Reload the page</li></ol>",
			Excerpt:      strPtr("Configure PostgreSQL to switch from sample data to real data."),
			Author:       "System",
			CoverImage:   strPtr("https://images.unsplash.com/photo-1544197150-b99a580bb7a8?w=800"),
			Views:        28,
			CategoryID:   1,
			CreatedAt:    yesterday,
			UpdatedAt:    yesterday,
			CommentCount: int64Ptr(1),
		},
	}

	return SampleData{Categories: categories, Posts: posts}
}

func (d SampleData) categories() []*domain.Category {
	out := make([]*domain.Category, len(d.Categories))
	for i := range d.Categories {
		c := d.Categories[i]
		out[i] = &c
	}
	return out
}

func (d SampleData) category(id uint) *domain.Category {
	for i := range d.Categories {
		if d.Categories[i].ID == id {
			c := d.Categories[i]
			return &c
		}
	}
	return nil
}

// posts возвращает копии демо-тем, подходящих под фильтр, с категориями.
func (d SampleData) posts(keep func(*domain.Post) bool) []*domain.Post {
	out := make([]*domain.Post, 0, len(d.Posts))
	for i := range d.Posts {
		p := d.Posts[i]
		if !keep(&p) {
			continue
		}
		p.Category = d.category(p.CategoryID)
		out = append(out, &p)
	}
	return out
}
