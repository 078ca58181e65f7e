package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/UkralStul/sitecms/internal/domain"
	"github.com/UkralStul/sitecms/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения. Живут один запрос и кешируют результаты внутри него.
type Loaders struct {
	PostCountByCategoryID *dataloader.Loader
	CommentCountByPostID  *dataloader.Loader
	RepliesByCommentID    *dataloader.Loader
}

// New создает набор лоадеров поверх хранилища форума.
func New(store storage.Forum) *Loaders {
	wait := dataloader.WithWait(time.Millisecond)
	return &Loaders{
		PostCountByCategoryID: dataloader.NewBatchedLoader(batch(store.CountPostsByCategoryIDs), wait),
		CommentCountByPostID:  dataloader.NewBatchedLoader(batch(store.CountCommentsByPostIDs), wait),
		RepliesByCommentID:    dataloader.NewBatchedLoader(batch(store.GetCommentsByParentIDs), wait),
	}
}

// ClearAll сбрасывает кеши всех лоадеров. Вызывается после каждой мутации,
// чтобы следующие поля запроса видели свежие счетчики.
func (l *Loaders) ClearAll() {
	l.PostCountByCategoryID.ClearAll()
	l.CommentCountByPostID.ClearAll()
	l.RepliesByCommentID.ClearAll()
}

// Middleware для внедрения лоадеров в контекст запроса.
func Middleware(store storage.Forum, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithLoaders(r.Context(), New(store))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithLoaders кладет лоадеры в контекст.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, key, l)
}

// For извлекает лоадеры из контекста. Вне HTTP-запроса возвращает nil.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(key).(*Loaders)
	return l
}

// batch превращает метод хранилища "map по списку id" в батч-функцию лоадера.
func batch[V any](fetch func(context.Context, []uint) (map[uint]V, error)) dataloader.BatchFunc {
	return func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		ids := make([]uint, len(keys))
		for i, k := range keys {
			id, err := strconv.ParseUint(k.String(), 10, 64)
			if err != nil {
				results[i] = &dataloader.Result{Error: fmt.Errorf("dataloader: bad key %q", k.String())}
				continue
			}
			ids[i] = uint(id)
		}

		// Вызываем метод хранилища, который делает ОДИН запрос к БД
		values, err := fetch(ctx, ids)
		if err != nil {
			// В случае ошибки, возвращаем ее для всех ключей
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Формируем результат в том же порядке, что и ключи
		for i, id := range ids {
			if results[i] == nil {
				results[i] = &dataloader.Result{Data: values[id]}
			}
		}
		return results
	}
}

func keysOf(ids []uint) dataloader.Keys {
	keys := make(dataloader.Keys, len(ids))
	for i, id := range ids {
		keys[i] = dataloader.StringKey(strconv.FormatUint(uint64(id), 10))
	}
	return keys
}

func loadMany[V any](ctx context.Context, l *dataloader.Loader, ids []uint) (map[uint]V, error) {
	values, errs := l.LoadMany(ctx, keysOf(ids))()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	result := make(map[uint]V, len(ids))
	for i, id := range ids {
		if v, ok := values[i].(V); ok {
			result[id] = v
		}
	}
	return result, nil
}

// PostCounts возвращает количество тем по категориям.
func (l *Loaders) PostCounts(ctx context.Context, categoryIDs []uint) (map[uint]int64, error) {
	return loadMany[int64](ctx, l.PostCountByCategoryID, categoryIDs)
}

// CommentCounts возвращает количество комментариев по темам.
func (l *Loaders) CommentCounts(ctx context.Context, postIDs []uint) (map[uint]int64, error) {
	return loadMany[int64](ctx, l.CommentCountByPostID, postIDs)
}

// Replies возвращает прямые ответы на комментарии, старые первыми.
func (l *Loaders) Replies(ctx context.Context, commentIDs []uint) (map[uint][]*domain.Comment, error) {
	return loadMany[[]*domain.Comment](ctx, l.RepliesByCommentID, commentIDs)
}
