package graph

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/errcode"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/UkralStul/sitecms/internal/domain"
	"github.com/UkralStul/sitecms/internal/storage"
)

// Значения extensions.code в ошибках ответа.
const (
	codeInvalidInput    = "INVALID_INPUT"
	codeMissingSelector = "MISSING_SELECTOR"
	codeNotFound        = "NOT_FOUND"
	codePostLocked      = "POST_LOCKED"
	codeConflict        = "CONFLICT"
	codeRateLimited     = "RATE_LIMITED"
	codeBadRequest      = "BAD_REQUEST"
	codeInternal        = "INTERNAL"
)

// codeFor сопоставляет ошибку сервиса с кодом ответа.
func codeFor(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrMissingSelector):
		return codeMissingSelector, true
	case errors.Is(err, domain.ErrInvalidInput):
		return codeInvalidInput, true
	case errors.Is(err, domain.ErrPostLocked):
		return codePostLocked, true
	case errors.Is(err, storage.ErrNotFound):
		return codeNotFound, true
	case errors.Is(err, storage.ErrConflict):
		return codeConflict, true
	}
	return "", false
}

// presentError проставляет extensions.code. Ошибки уровня запроса (разбор тела, валидация)
// приходят без Err; непредвиденные ошибки резолверов логируются, клиент получает обезличенное сообщение.
func (h *Handler) presentError(ctx context.Context, err error) *gqlerror.Error {
	var gqlErr *gqlerror.Error
	if !errors.As(err, &gqlErr) {
		gqlErr = gqlerror.WrapPath(graphql.GetPath(ctx), err)
	}
	if fc := graphql.GetFieldContext(ctx); fc != nil && len(gqlErr.Locations) == 0 &&
		fc.Field.Field != nil && fc.Field.Position != nil {
		gqlErr.Locations = []gqlerror.Location{{Line: fc.Field.Position.Line, Column: fc.Field.Position.Column}}
	}
	if _, ok := gqlErr.Extensions["code"]; ok {
		return gqlErr
	}

	if code, ok := codeFor(err); ok {
		errcode.Set(gqlErr, code)
		return gqlErr
	}
	if gqlErr.Err == nil {
		errcode.Set(gqlErr, codeBadRequest)
		return gqlErr
	}

	event := h.log.Error().Err(gqlErr.Err).Str("request_id", requestID(ctx))
	if fc := graphql.GetFieldContext(ctx); fc != nil {
		event = event.Str("field", fc.Field.Name)
	}
	event.Msg("resolver failed")

	gqlErr.Message = "internal server error"
	errcode.Set(gqlErr, codeInternal)
	return gqlErr
}

// recoverPanic превращает панику резолвера в ошибку INTERNAL.
func (h *Handler) recoverPanic(ctx context.Context, p interface{}) error {
	h.log.Error().
		Interface("panic", p).
		Str("request_id", requestID(ctx)).
		Bytes("stack", debug.Stack()).
		Msg("resolver panicked")

	err := gqlerror.Errorf("internal server error")
	errcode.Set(err, codeInternal)
	return err
}
