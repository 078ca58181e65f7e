package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/UkralStul/sitecms/internal/domain"
	"github.com/UkralStul/sitecms/internal/forum"
	"github.com/UkralStul/sitecms/internal/storage"
)

// fillWithMockData наполняет in-memory хранилище демо-категориями, темами и обсуждением.
func fillWithMockData(s storage.Forum, log zerolog.Logger) {
	ctx := context.Background()
	sample := forum.DefaultSampleData(time.Now())

	// 1. Категории. Запоминаем соответствие id демо-данных новым id.
	categoryIDs := make(map[uint]uint, len(sample.Categories))
	for _, c := range sample.Categories {
		created, err := s.CreateCategory(ctx, &domain.Category{
			Name:        c.Name,
			Slug:        c.Slug,
			Description: c.Description,
			Icon:        c.Icon,
			Color:       c.Color,
			Order:       c.Order,
		})
		if err != nil {
			log.Fatal().Err(err).Str("category", c.Slug).Msg("fillWithMockData: failed to create category")
		}
		categoryIDs[c.ID] = created.ID
	}

	// 2. Темы.
	var welcome *domain.Post
	for _, p := range sample.Posts {
		created, err := s.CreatePost(ctx, &domain.Post{
			Title:       p.Title,
			Slug:        p.Slug,
			Content:     p.Content,
			Excerpt:     p.Excerpt,
			Author:      p.Author,
			AuthorEmail: p.AuthorEmail,
			CoverImage:  p.CoverImage,
			IsPinned:    p.IsPinned,
			IsLocked:    p.IsLocked,
			CategoryID:  categoryIDs[p.CategoryID],
		})
		if err != nil {
			log.Fatal().Err(err).Str("post", p.Slug).Msg("fillWithMockData: failed to create post")
		}
		if welcome == nil {
			welcome = created
		}
	}
	if welcome == nil {
		return
	}

	// 3. Корневой комментарий и ответ на него.
	first, err := s.CreateComment(ctx, &domain.Comment{
		PostID:  welcome.ID,
		Author:  "Anna",
		Content: "Great to see the forum up and running!",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("fillWithMockData: failed to create comment")
	}
	if _, err := s.CreateComment(ctx, &domain.Comment{
		PostID:   welcome.ID,
		ParentID: &first.ID,
		Author:   "Admin",
		Content:  "Thanks! Feel free to start a new topic.",
	}); err != nil {
		log.Fatal().Err(err).Msg("fillWithMockData: failed to create reply")
	}

	log.Info().
		Int("categories", len(categoryIDs)).
		Int("posts", len(sample.Posts)).
		Uint("welcome_post_id", welcome.ID).
		Msg("Mock data filled successfully")
}
