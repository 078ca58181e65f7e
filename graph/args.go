package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/UkralStul/sitecms/internal/domain"
)

// Значения аргументов приходят из двух источников: литералы документа (int64, float64, string)
// и переменные запроса (json.Number, string). Хелперы ниже принимают оба варианта.

func toUint(v interface{}) (uint, error) {
	var (
		n   uint64
		err error
	)
	switch x := v.(type) {
	case json.Number:
		n, err = strconv.ParseUint(x.String(), 10, 64)
	case string:
		n, err = strconv.ParseUint(x, 10, 64)
	case int64:
		if x < 0 {
			err = fmt.Errorf("negative value %d", x)
		}
		n = uint64(x)
	case int:
		if x < 0 {
			err = fmt.Errorf("negative value %d", x)
		}
		n = uint64(x)
	case float64:
		if x < 0 || x != math.Trunc(x) {
			err = fmt.Errorf("not an unsigned integer: %v", x)
		}
		n = uint64(x)
	default:
		err = fmt.Errorf("unexpected type %T", v)
	}
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}

// toInt приводит значение к Int. GraphQL Int - 32-битное знаковое целое, больше не принимаем.
func toInt(v interface{}) (int, error) {
	var n int64
	switch x := v.(type) {
	case json.Number:
		var err error
		if n, err = x.Int64(); err != nil {
			return 0, err
		}
	case int64:
		n = x
	case int:
		n = int64(x)
	case float64:
		if x != math.Trunc(x) || x < math.MinInt32 || x > math.MaxInt32 {
			return 0, fmt.Errorf("not a 32-bit integer: %v", x)
		}
		n = int64(x)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%d is out of the 32-bit range", n)
	}
	return int(n), nil
}

func idArg(args map[string]interface{}, name string) (uint, error) {
	id, err := toUint(args[name])
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, name, err)
	}
	return id, nil
}

func optIDArg(args map[string]interface{}, name string) (*uint, error) {
	if args[name] == nil {
		return nil, nil
	}
	id, err := idArg(args, name)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func intArg(args map[string]interface{}, name string, def int) (int, error) {
	if args[name] == nil {
		return def, nil
	}
	n, err := toInt(args[name])
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, name, err)
	}
	return n, nil
}

func optIntArg(args map[string]interface{}, name string) (*int, error) {
	if args[name] == nil {
		return nil, nil
	}
	n, err := intArg(args, name, 0)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func stringArg(args map[string]interface{}, name string) string {
	s, _ := args[name].(string)
	return s
}

func optStringArg(args map[string]interface{}, name string) *string {
	s, ok := args[name].(string)
	if !ok {
		return nil
	}
	return &s
}

func optBoolArg(args map[string]interface{}, name string) *bool {
	b, ok := args[name].(bool)
	if !ok {
		return nil
	}
	return &b
}

// inputArg возвращает входной объект аргумента name.
func inputArg(args map[string]interface{}, name string) (map[string]interface{}, error) {
	input, ok := args[name].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, name)
	}
	return input, nil
}

func selectorArgs(args map[string]interface{}) (domain.Selector, error) {
	id, err := optIDArg(args, "id")
	if err != nil {
		return domain.Selector{}, err
	}
	return domain.Selector{ID: id, Slug: optStringArg(args, "slug")}, nil
}
