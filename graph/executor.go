package graph

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/errcode"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/UkralStul/sitecms/internal/dataloader"
)

//go:embed schema.graphqls
var schemaSource string

// Schema разбирает встроенную SDL-схему.
func Schema() *ast.Schema {
	return gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: schemaSource})
}

// Executor - исполняемая схема для handler.Server: корневые поля вычисляются по таблицам резолверов,
// результат проецируется на выборку запроса.
type Executor struct {
	schema    *ast.Schema
	queries   map[string]resolveFunc
	mutations map[string]resolveFunc
}

var _ graphql.ExecutableSchema = (*Executor)(nil)

// NewExecutor строит исполнителя и сверяет таблицы резолверов со схемой.
// Расхождение - ошибка сборки сервиса, поэтому паника.
func NewExecutor(schema *ast.Schema, r *Resolver) *Executor {
	e := &Executor{
		schema:    schema,
		queries:   r.queries(),
		mutations: r.mutations(),
	}
	mustMatch(schema.Query, e.queries)
	mustMatch(schema.Mutation, e.mutations)
	return e
}

func mustMatch(def *ast.Definition, table map[string]resolveFunc) {
	declared := make(map[string]bool)
	if def != nil {
		for _, f := range def.Fields {
			if strings.HasPrefix(f.Name, "__") {
				continue
			}
			declared[f.Name] = true
		}
	}

	var problems []string
	for name := range declared {
		if _, ok := table[name]; !ok {
			problems = append(problems, "no resolver for "+name)
		}
	}
	for name := range table {
		if !declared[name] {
			problems = append(problems, "resolver "+name+" is not in the schema")
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		panic(fmt.Sprintf("graph: schema mismatch: %s", strings.Join(problems, "; ")))
	}
}

func (e *Executor) Schema() *ast.Schema {
	return e.schema
}

func (e *Executor) Complexity(typeName, fieldName string, childComplexity int, args map[string]interface{}) (int, bool) {
	return 0, false
}

// Exec выполняет операцию из контекста. Корневые поля вычисляются последовательно в порядке документа,
// после каждой мутации кеши дата-лоадеров сбрасываются.
func (e *Executor) Exec(ctx context.Context) graphql.ResponseHandler {
	rc := graphql.GetOperationContext(ctx)

	var (
		root  *ast.Definition
		table map[string]resolveFunc
	)
	switch rc.Operation.Operation {
	case ast.Query:
		root, table = e.schema.Query, e.queries
	case ast.Mutation:
		root, table = e.schema.Mutation, e.mutations
	default:
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}
	mutation := rc.Operation.Operation == ast.Mutation

	first := true
	return func(ctx context.Context) *graphql.Response {
		if !first {
			return nil
		}
		first = false

		fields := graphql.CollectFields(rc, rc.Operation.SelectionSet, []string{root.Name})
		out := graphql.NewFieldSet(fields)
		for i, field := range fields {
			value, ok := e.rootField(ctx, rc, root, field, table)
			out.Values[i] = value
			if !ok && field.Definition != nil && field.Definition.Type.NonNull {
				out.Invalids++
			}
			if mutation {
				if l := dataloader.For(ctx); l != nil {
					l.ClearAll()
				}
			}
		}
		if out.Invalids > 0 {
			return &graphql.Response{Data: json.RawMessage("null")}
		}

		var buf bytes.Buffer
		out.MarshalGQL(&buf)
		return &graphql.Response{Data: buf.Bytes()}
	}
}

// rootField вычисляет одно корневое поле. ok == false, если поле завершилось ошибкой.
func (e *Executor) rootField(ctx context.Context, rc *graphql.OperationContext, root *ast.Definition, field graphql.CollectedField, table map[string]resolveFunc) (res graphql.Marshaler, ok bool) {
	if field.Name == "__typename" {
		return graphql.MarshalString(root.Name), true
	}

	args := field.ArgumentMap(rc.Variables)
	ctx = graphql.WithFieldContext(ctx, &graphql.FieldContext{
		Object:     root.Name,
		Field:      field,
		Args:       args,
		IsMethod:   true,
		IsResolver: true,
	})
	defer func() {
		if r := recover(); r != nil {
			graphql.AddError(ctx, rc.Recover(ctx, r))
			res, ok = graphql.Null, false
		}
	}()

	switch field.Name {
	case "__schema", "__type":
		if rc.DisableIntrospection {
			err := gqlerror.Errorf("introspection disabled")
			errcode.Set(err, codeBadRequest)
			graphql.AddError(ctx, err)
			return graphql.Null, false
		}
		return e.introspect(rc, field, args), true
	}

	resolve, found := table[field.Name]
	if !found {
		graphql.AddError(ctx, fmt.Errorf("no resolver for %s.%s", root.Name, field.Name))
		return graphql.Null, false
	}
	value, err := resolve(ctx, args)
	if err != nil {
		graphql.AddError(ctx, err)
		return graphql.Null, false
	}
	tree, err := toGeneric(value)
	if err != nil {
		graphql.AddError(ctx, fmt.Errorf("encode %s: %w", field.Name, err))
		return graphql.Null, false
	}
	return complete(rc, tree, field.Definition.Type, field.Selections), true
}

// toGeneric переводит результат резолвера в дерево map/slice по его JSON-представлению.
func toGeneric(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree interface{}
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return tree, nil
}
