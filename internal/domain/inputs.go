package domain

// NewCategory - данные для создания категории.
type NewCategory struct {
	Name        string
	Slug        string
	Description *string
	Icon        *string
	Color       *string
	Order       *int
}

// CategoryPatch - частичное обновление категории. nil означает "не менять".
type CategoryPatch struct {
	Name        *string
	Slug        *string
	Description *string
	Icon        *string
	Color       *string
	Order       *int
}

// NewPost - данные формы создания темы.
type NewPost struct {
	Title       string
	Slug        string
	Content     string
	Excerpt     *string
	Author      string
	AuthorEmail *string
	CoverImage  *string
	CategoryID  uint
	IsPinned    *bool
	IsLocked    *bool
}

// PostPatch - частичное обновление темы (правки админа, закрепление, закрытие).
type PostPatch struct {
	Title       *string
	Slug        *string
	Content     *string
	Excerpt     *string
	Author      *string
	AuthorEmail *string
	CoverImage  *string
	CategoryID  *uint
	IsPinned    *bool
	IsLocked    *bool
}

// NewComment - данные для нового комментария или ответа.
type NewComment struct {
	Content     string
	Author      string
	AuthorEmail *string
	PostID      uint
	ParentID    *uint
}

// CommentPatch - редактирование комментария.
type CommentPatch struct {
	Content *string
}

// Selector выбирает сущность по id или по slug. Должно быть задано ровно одно поле.
type Selector struct {
	ID   *uint
	Slug *string
}

// PostFilter - параметры списка тем.
type PostFilter struct {
	Page       int
	PageSize   int
	CategoryID *uint
	Search     *string
}

// PostPage - страница списка тем.
type PostPage struct {
	Posts    []*Post `json:"posts"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
	HasMore  bool    `json:"hasMore"`
}
