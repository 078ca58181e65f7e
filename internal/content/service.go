package content

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/UkralStul/sitecms/internal/domain"
	"github.com/UkralStul/sitecms/internal/storage"
)

// Service реализует чтение и частичное обновление контент-блоков поверх хранилища.
type Service struct {
	store storage.ContentBlocks
	log   zerolog.Logger
}

// NewService - конструктор сервиса контент-блоков.
func NewService(store storage.ContentBlocks, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "content").Logger(),
	}
}

// Ensure возвращает запись блока, создавая её с payload по умолчанию при первом обращении.
func (s *Service) Ensure(ctx context.Context, key domain.BlockKey) (*domain.ContentBlock, error) {
	if !IsKnown(key) {
		return nil, fmt.Errorf("%w: unknown content block %q", domain.ErrInvalidInput, key)
	}
	defaults, err := json.Marshal(DefaultPayload(key))
	if err != nil {
		return nil, err
	}
	block, err := s.store.EnsureBlock(ctx, key, defaults)
	if err != nil {
		return nil, fmt.Errorf("ensure %s block: %w", key, err)
	}
	return block, nil
}

// Read возвращает нормализованный блок: сохраненный payload, дополненный значениями по умолчанию.
func (s *Service) Read(ctx context.Context, key domain.BlockKey) (Block, error) {
	record, err := s.Ensure(ctx, key)
	if err != nil {
		return nil, err
	}
	block, err := fromTree(key, record.ID, s.normalize(key, record))
	if err != nil {
		return nil, fmt.Errorf("decode stored %s block: %w", key, err)
	}
	return block, nil
}

// Write накладывает частичный input на текущее нормализованное состояние и сохраняет результат.
// Поля, которых нет в input, сохраняют прежние значения; массивы заменяются целиком.
func (s *Service) Write(ctx context.Context, key domain.BlockKey, input interface{}) (Block, error) {
	patch, ok := input.(map[string]interface{})
	if !ok || patch == nil {
		return nil, fmt.Errorf("%w: %s update payload must be an object", domain.ErrInvalidInput, key)
	}

	record, err := s.Ensure(ctx, key)
	if err != nil {
		return nil, err
	}
	block, err := fromTree(key, record.ID, DeepMerge(s.normalize(key, record), patch))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	payload, err := json.Marshal(block.payload())
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateBlockPayload(ctx, record.ID, payload)
	if err != nil {
		return nil, fmt.Errorf("update %s block: %w", key, err)
	}
	s.log.Info().Str("key", string(key)).Uint("id", updated.ID).Msg("content block updated")

	block.setID(updated.ID)
	return block, nil
}

// normalize сливает payload по умолчанию с сохраненным. Поля верхнего уровня, которые
// не ложатся в форму блока (например, hero: "x"), заменяются значениями по умолчанию.
func (s *Service) normalize(key domain.BlockKey, record *domain.ContentBlock) map[string]interface{} {
	stored := map[string]interface{}{}
	if len(record.Payload) > 0 {
		tree, err := decodeTree(record.Payload)
		if err != nil {
			s.log.Warn().Err(err).Str("key", string(key)).Msg("stored payload is not valid JSON, using defaults")
		} else {
			stored = tree
		}
	}

	merged := DeepMerge(DefaultPayload(key), stored)
	if _, err := fromTree(key, record.ID, merged); err == nil {
		return merged
	}

	fields := make([]string, 0, len(stored))
	for field := range stored {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	merged = DefaultPayload(key)
	for _, field := range fields {
		candidate := DeepMerge(merged, map[string]interface{}{field: stored[field]})
		if _, err := fromTree(key, record.ID, candidate); err != nil {
			s.log.Warn().Err(err).Str("key", string(key)).Str("field", field).Msg("stored field has unexpected type, using default")
			continue
		}
		merged = candidate
	}
	return merged
}
