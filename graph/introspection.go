package graph

import (
	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/introspection"
	"github.com/vektah/gqlparser/v2/ast"
)

// introspect отвечает на __schema и __type(name) по разобранной схеме.
func (e *Executor) introspect(rc *graphql.OperationContext, field graphql.CollectedField, args map[string]interface{}) graphql.Marshaler {
	if field.Name == "__schema" {
		return marshalSchema(rc, introspection.WrapSchema(e.schema), field.Selections)
	}
	name, _ := args["name"].(string)
	return marshalType(rc, introspection.WrapTypeFromDef(e.schema, e.schema.Types[name]), field.Selections)
}

func optString(s *string) graphql.Marshaler {
	if s == nil {
		return graphql.Null
	}
	return graphql.MarshalString(*s)
}

func includeDeprecated(rc *graphql.OperationContext, f graphql.CollectedField) bool {
	include, _ := f.ArgumentMap(rc.Variables)["includeDeprecated"].(bool)
	return include
}

func marshalSchema(rc *graphql.OperationContext, s *introspection.Schema, sels ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(rc, sels, []string{"__Schema"})
	out := graphql.NewFieldSet(fields)
	for i, f := range fields {
		switch f.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("__Schema")
		case "description":
			out.Values[i] = optString(s.Description())
		case "types":
			out.Values[i] = marshalTypes(rc, s.Types(), f.Selections)
		case "queryType":
			out.Values[i] = marshalType(rc, s.QueryType(), f.Selections)
		case "mutationType":
			out.Values[i] = marshalType(rc, s.MutationType(), f.Selections)
		case "subscriptionType":
			out.Values[i] = marshalType(rc, s.SubscriptionType(), f.Selections)
		case "directives":
			directives := s.Directives()
			list := make(graphql.Array, len(directives))
			for j := range directives {
				list[j] = marshalDirective(rc, &directives[j], f.Selections)
			}
			out.Values[i] = list
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func marshalTypes(rc *graphql.OperationContext, types []introspection.Type, sels ast.SelectionSet) graphql.Marshaler {
	list := make(graphql.Array, len(types))
	for i := range types {
		list[i] = marshalType(rc, &types[i], sels)
	}
	return list
}

func marshalType(rc *graphql.OperationContext, t *introspection.Type, sels ast.SelectionSet) graphql.Marshaler {
	if t == nil {
		return graphql.Null
	}
	fields := graphql.CollectFields(rc, sels, []string{"__Type"})
	out := graphql.NewFieldSet(fields)
	for i, f := range fields {
		switch f.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("__Type")
		case "kind":
			out.Values[i] = graphql.MarshalString(t.Kind())
		case "name":
			out.Values[i] = optString(t.Name())
		case "description":
			out.Values[i] = optString(t.Description())
		case "specifiedByURL":
			// у оберток LIST и NON_NULL нет определения
			if t.Kind() == string(ast.Scalar) {
				out.Values[i] = optString(t.SpecifiedByURL())
			} else {
				out.Values[i] = graphql.Null
			}
		case "fields":
			defs := t.Fields(includeDeprecated(rc, f))
			list := make(graphql.Array, len(defs))
			for j := range defs {
				list[j] = marshalField(rc, &defs[j], f.Selections)
			}
			out.Values[i] = list
		case "interfaces":
			out.Values[i] = marshalTypes(rc, t.Interfaces(), f.Selections)
		case "possibleTypes":
			out.Values[i] = marshalTypes(rc, t.PossibleTypes(), f.Selections)
		case "enumValues":
			values := t.EnumValues(includeDeprecated(rc, f))
			list := make(graphql.Array, len(values))
			for j := range values {
				list[j] = marshalEnumValue(rc, &values[j], f.Selections)
			}
			out.Values[i] = list
		case "inputFields":
			out.Values[i] = marshalInputValues(rc, t.InputFields(), f.Selections)
		case "ofType":
			out.Values[i] = marshalType(rc, t.OfType(), f.Selections)
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func marshalField(rc *graphql.OperationContext, field *introspection.Field, sels ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(rc, sels, []string{"__Field"})
	out := graphql.NewFieldSet(fields)
	for i, f := range fields {
		switch f.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("__Field")
		case "name":
			out.Values[i] = graphql.MarshalString(field.Name)
		case "description":
			out.Values[i] = optString(field.Description())
		case "args":
			out.Values[i] = marshalInputValues(rc, field.Args, f.Selections)
		case "type":
			out.Values[i] = marshalType(rc, field.Type, f.Selections)
		case "isDeprecated":
			out.Values[i] = graphql.MarshalBoolean(field.IsDeprecated())
		case "deprecationReason":
			out.Values[i] = optString(field.DeprecationReason())
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func marshalInputValues(rc *graphql.OperationContext, values []introspection.InputValue, sels ast.SelectionSet) graphql.Marshaler {
	list := make(graphql.Array, len(values))
	for j := range values {
		value := &values[j]
		fields := graphql.CollectFields(rc, sels, []string{"__InputValue"})
		out := graphql.NewFieldSet(fields)
		for i, f := range fields {
			switch f.Name {
			case "__typename":
				out.Values[i] = graphql.MarshalString("__InputValue")
			case "name":
				out.Values[i] = graphql.MarshalString(value.Name)
			case "description":
				out.Values[i] = optString(value.Description())
			case "type":
				out.Values[i] = marshalType(rc, value.Type, f.Selections)
			case "defaultValue":
				out.Values[i] = optString(value.DefaultValue)
			default:
				out.Values[i] = graphql.Null
			}
		}
		list[j] = out
	}
	return list
}

func marshalEnumValue(rc *graphql.OperationContext, value *introspection.EnumValue, sels ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(rc, sels, []string{"__EnumValue"})
	out := graphql.NewFieldSet(fields)
	for i, f := range fields {
		switch f.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("__EnumValue")
		case "name":
			out.Values[i] = graphql.MarshalString(value.Name)
		case "description":
			out.Values[i] = optString(value.Description())
		case "isDeprecated":
			out.Values[i] = graphql.MarshalBoolean(value.IsDeprecated())
		case "deprecationReason":
			out.Values[i] = optString(value.DeprecationReason())
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func marshalDirective(rc *graphql.OperationContext, d *introspection.Directive, sels ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(rc, sels, []string{"__Directive"})
	out := graphql.NewFieldSet(fields)
	for i, f := range fields {
		switch f.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("__Directive")
		case "name":
			out.Values[i] = graphql.MarshalString(d.Name)
		case "description":
			out.Values[i] = optString(d.Description())
		case "locations":
			locations := make(graphql.Array, len(d.Locations))
			for j, loc := range d.Locations {
				locations[j] = graphql.MarshalString(loc)
			}
			out.Values[i] = locations
		case "args":
			out.Values[i] = marshalInputValues(rc, d.Args, f.Selections)
		case "isRepeatable":
			out.Values[i] = graphql.MarshalBoolean(d.IsRepeatable)
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}
