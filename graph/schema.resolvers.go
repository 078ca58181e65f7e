package graph

import (
	"context"

	"github.com/UkralStul/sitecms/internal/content"
	"github.com/UkralStul/sitecms/internal/domain"
)

// queries - таблица корневых полей Query. Набор полей сверяется со схемой при старте.
func (r *Resolver) queries() map[string]resolveFunc {
	return map[string]resolveFunc{
		"homePage": r.readBlock(domain.BlockHomePage),
		"logo":     r.readBlock(domain.BlockLogo),
		"color":    r.readBlock(domain.BlockColor),

		"categories":  r.categories,
		"category":    r.category,
		"posts":       r.posts,
		"post":        r.post,
		"pinnedPosts": r.pinnedPosts,
		"comments":    r.comments,
		"comment":     r.comment,
	}
}

// mutations - таблица корневых полей Mutation.
func (r *Resolver) mutations() map[string]resolveFunc {
	return map[string]resolveFunc{
		"updateHomePage": r.writeBlock(domain.BlockHomePage),
		"updateLogo":     r.writeBlock(domain.BlockLogo),
		"updateColor":    r.writeBlock(domain.BlockColor),

		"createCategory": r.createCategory,
		"updateCategory": r.updateCategory,
		"deleteCategory": r.deleteCategory,

		"createPost":         r.createPost,
		"updatePost":         r.updatePost,
		"deletePost":         r.deletePost,
		"incrementPostViews": r.incrementPostViews,

		"createComment": r.createComment,
		"updateComment": r.updateComment,
		"deleteComment": r.deleteComment,
	}
}

// === Content block resolvers ===

// readBlock отдает блок списком из одного элемента, как его ждет фронтенд.
func (r *Resolver) readBlock(key domain.BlockKey) resolveFunc {
	return func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		block, err := r.Content.Read(ctx, key)
		if err != nil {
			return nil, err
		}
		return []content.Block{block}, nil
	}
}

func (r *Resolver) writeBlock(key domain.BlockKey) resolveFunc {
	return func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
		return r.Content.Write(ctx, key, args["input"])
	}
}

// === Query Resolvers ===

func (r *Resolver) categories(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return r.Forum.ListCategories(ctx)
}

func (r *Resolver) category(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sel, err := selectorArgs(args)
	if err != nil {
		return nil, err
	}
	return r.Forum.GetCategory(ctx, sel)
}

func (r *Resolver) posts(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	page, err := intArg(args, "page", 1)
	if err != nil {
		return nil, err
	}
	pageSize, err := intArg(args, "pageSize", 0)
	if err != nil {
		return nil, err
	}
	categoryID, err := optIDArg(args, "categoryId")
	if err != nil {
		return nil, err
	}
	return r.Forum.ListPosts(ctx, domain.PostFilter{
		Page:       page,
		PageSize:   pageSize,
		CategoryID: categoryID,
		Search:     optStringArg(args, "search"),
	})
}

func (r *Resolver) post(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	sel, err := selectorArgs(args)
	if err != nil {
		return nil, err
	}
	return r.Forum.GetPost(ctx, sel)
}

func (r *Resolver) pinnedPosts(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	return r.Forum.ListPinnedPosts(ctx)
}

func (r *Resolver) comments(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	postID, err := idArg(args, "postId")
	if err != nil {
		return nil, err
	}
	return r.Forum.ListComments(ctx, postID)
}

func (r *Resolver) comment(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id, err := idArg(args, "id")
	if err != nil {
		return nil, err
	}
	return r.Forum.GetComment(ctx, id)
}

// === Mutation Resolvers ===

func (r *Resolver) createCategory(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	in, err := inputArg(args, "input")
	if err != nil {
		return nil, err
	}
	order, err := optIntArg(in, "order")
	if err != nil {
		return nil, err
	}
	return r.Forum.CreateCategory(ctx, domain.NewCategory{
		Name:        stringArg(in, "name"),
		Slug:        stringArg(in, "slug"),
		Description: optStringArg(in, "description"),
		Icon:        optStringArg(in, "icon"),
		Color:       optStringArg(in, "color"),
		Order:       order,
	})
}

func (r *Resolver) updateCategory(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id, err := idArg(args, "id")
	if err != nil {
		return nil, err
	}
	in, err := inputArg(args, "input")
	if err != nil {
		return nil, err
	}
	order, err := optIntArg(in, "order")
	if err != nil {
		return nil, err
	}
	return r.Forum.UpdateCategory(ctx, id, domain.CategoryPatch{
		Name:        optStringArg(in, "name"),
		Slug:        optStringArg(in, "slug"),
		Description: optStringArg(in, "description"),
		Icon:        optStringArg(in, "icon"),
		Color:       optStringArg(in, "color"),
		Order:       order,
	})
}

func (r *Resolver) deleteCategory(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id, err := idArg(args, "id")
	if err != nil {
		return nil, err
	}
	if err := r.Forum.DeleteCategory(ctx, id); err != nil {
		return nil, err
	}
	return true, nil
}

func (r *Resolver) createPost(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	in, err := inputArg(args, "input")
	if err != nil {
		return nil, err
	}
	categoryID, err := idArg(in, "categoryId")
	if err != nil {
		return nil, err
	}
	return r.Forum.CreatePost(ctx, domain.NewPost{
		Title:       stringArg(in, "title"),
		Slug:        stringArg(in, "slug"),
		Content:     stringArg(in, "content"),
		Excerpt:     optStringArg(in, "excerpt"),
		Author:      stringArg(in, "author"),
		AuthorEmail: optStringArg(in, "authorEmail"),
		CoverImage:  optStringArg(in, "coverImage"),
		CategoryID:  categoryID,
		IsPinned:    optBoolArg(in, "isPinned"),
		IsLocked:    optBoolArg(in, "isLocked"),
	})
}

func (r *Resolver) updatePost(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id, err := idArg(args, "id")
	if err != nil {
		return nil, err
	}
	in, err := inputArg(args, "input")
	if err != nil {
		return nil, err
	}
	categoryID, err := optIDArg(in, "categoryId")
	if err != nil {
		return nil, err
	}
	return r.Forum.UpdatePost(ctx, id, domain.PostPatch{
		Title:       optStringArg(in, "title"),
		Slug:        optStringArg(in, "slug"),
		Content:     optStringArg(in, "content"),
		Excerpt:     optStringArg(in, "excerpt"),
		Author:      optStringArg(in, "author"),
		AuthorEmail: optStringArg(in, "authorEmail"),
		CoverImage:  optStringArg(in, "coverImage"),
		CategoryID:  categoryID,
		IsPinned:    optBoolArg(in, "isPinned"),
		IsLocked:    optBoolArg(in, "isLocked"),
	})
}

func (r *Resolver) deletePost(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id, err := idArg(args, "id")
	if err != nil {
		return nil, err
	}
	if err := r.Forum.DeletePost(ctx, id); err != nil {
		return nil, err
	}
	return true, nil
}

func (r *Resolver) incrementPostViews(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id, err := idArg(args, "id")
	if err != nil {
		return nil, err
	}
	return r.Forum.IncrementPostViews(ctx, id)
}

func (r *Resolver) createComment(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	in, err := inputArg(args, "input")
	if err != nil {
		return nil, err
	}
	postID, err := idArg(in, "postId")
	if err != nil {
		return nil, err
	}
	parentID, err := optIDArg(in, "parentId")
	if err != nil {
		return nil, err
	}
	return r.Forum.CreateComment(ctx, domain.NewComment{
		Content:     stringArg(in, "content"),
		Author:      stringArg(in, "author"),
		AuthorEmail: optStringArg(in, "authorEmail"),
		PostID:      postID,
		ParentID:    parentID,
	})
}

func (r *Resolver) updateComment(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id, err := idArg(args, "id")
	if err != nil {
		return nil, err
	}
	in, err := inputArg(args, "input")
	if err != nil {
		return nil, err
	}
	return r.Forum.UpdateComment(ctx, id, domain.CommentPatch{Content: optStringArg(in, "content")})
}

func (r *Resolver) deleteComment(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	id, err := idArg(args, "id")
	if err != nil {
		return nil, err
	}
	if err := r.Forum.DeleteComment(ctx, id); err != nil {
		return nil, err
	}
	return true, nil
}
