package adapter

import (
	"fmt"

	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/jrsteele09/go-auth-triplit/query"
	"github.com/pkg/errors"
)

var comparisons = map[authmodel.Operator]query.Comparison{
	authmodel.OpEq:  query.Equal,
	authmodel.OpIn:  query.In,
	authmodel.OpNe:  query.NotEqual,
	authmodel.OpGt:  query.Greater,
	authmodel.OpGte: query.GreaterOrEqual,
	authmodel.OpLt:  query.Less,
	authmodel.OpLte: query.LessOrEqual,
}

// ParseWhere translates generic filters into native filter triples, preserving order.
//
// contains, starts_with and ends_with become like patterns with % wildcards added by plain
// concatenation, so a % inside the value is not escaped. Filters with an unknown operator
// are dropped without error; use ValidateWhere to detect them.
func ParseWhere(where []authmodel.Where) []query.Filter {
	parsed := make([]query.Filter, 0, len(where))

	for _, item := range where {
		switch item.Operator {
		case authmodel.OpContains:
			parsed = append(parsed, query.Filter{Field: item.Field, Op: query.Like, Value: "%" + likeValue(item.Value) + "%"})
		case authmodel.OpStartsWith:
			parsed = append(parsed, query.Filter{Field: item.Field, Op: query.Like, Value: likeValue(item.Value) + "%"})
		case authmodel.OpEndsWith:
			parsed = append(parsed, query.Filter{Field: item.Field, Op: query.Like, Value: "%" + likeValue(item.Value)})
		default:
			if op, ok := comparisons[item.Operator]; ok {
				parsed = append(parsed, query.Filter{Field: item.Field, Op: op, Value: item.Value})
			}
		}
	}

	return parsed
}

// ValidateWhere reports the first filter whose operator ParseWhere would drop.
func ValidateWhere(where []authmodel.Where) error {
	for i, item := range where {
		if !knownOperator(item.Operator) {
			return errors.Wrapf(ErrUnsupportedOperator, "where[%d] %s %q", i, item.Field, item.Operator)
		}
	}
	return nil
}

func knownOperator(op authmodel.Operator) bool {
	for _, known := range authmodel.Operators {
		if op == known {
			return true
		}
	}
	return false
}

func likeValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
