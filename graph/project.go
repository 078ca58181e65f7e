package graph

import (
	"encoding/json"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2/ast"
)

// complete проецирует значение на выборку: оставляет запрошенные поля под их алиасами
// в порядке документа.
func complete(rc *graphql.OperationContext, v interface{}, typ *ast.Type, sels ast.SelectionSet) graphql.Marshaler {
	if v == nil {
		return graphql.Null
	}
	if typ.Elem != nil {
		list, ok := v.([]interface{})
		if !ok {
			return graphql.Null
		}
		out := make(graphql.Array, len(list))
		for i, item := range list {
			out[i] = complete(rc, item, typ.Elem, sels)
		}
		return out
	}
	if len(sels) == 0 {
		return scalar(v, typ.NamedType)
	}

	obj, ok := v.(map[string]interface{})
	if !ok {
		return graphql.Null
	}
	fields := graphql.CollectFields(rc, sels, []string{typ.NamedType})
	out := graphql.NewFieldSet(fields)
	for i, f := range fields {
		if f.Name == "__typename" {
			out.Values[i] = graphql.MarshalString(typ.NamedType)
			continue
		}
		out.Values[i] = complete(rc, obj[f.Name], f.Definition.Type, f.Selections)
	}
	return out
}

// scalar приводит листовое значение к виду GraphQL: ID отдается строкой.
func scalar(v interface{}, typeName string) graphql.Marshaler {
	switch typeName {
	case "ID":
		switch x := v.(type) {
		case json.Number:
			return graphql.MarshalID(x.String())
		case string:
			return graphql.MarshalID(x)
		}
	case "String":
		if s, ok := v.(string); ok {
			return graphql.MarshalString(s)
		}
	case "Boolean":
		if b, ok := v.(bool); ok {
			return graphql.MarshalBoolean(b)
		}
	}
	return graphql.MarshalAny(v)
}
