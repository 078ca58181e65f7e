package graph

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/UkralStul/sitecms/internal/content"
	"github.com/UkralStul/sitecms/internal/forum"
)

// resolveFunc вычисляет корневое поле по уже приведенным аргументам.
type resolveFunc func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// Resolver - это корневая структура резолвера.
// Она содержит все зависимости, которые нужны для выполнения запросов.
type Resolver struct {
	Content *content.Service
	Forum   *forum.Service
	Log     zerolog.Logger
}
