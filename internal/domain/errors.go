package domain

import "errors"

var (
	// ErrInvalidInput - входные данные мутации отсутствуют или некорректны.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingSelector - не передан ни id, ни slug (или переданы оба).
	ErrMissingSelector = errors.New("exactly one of id or slug must be provided")
	// ErrPostLocked - тема закрыта для новых комментариев.
	ErrPostLocked = errors.New("post is locked for new comments")
)
