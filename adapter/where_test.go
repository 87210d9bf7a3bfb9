package adapter_test

import (
	"testing"

	"github.com/jrsteele09/go-auth-triplit/adapter"
	"github.com/jrsteele09/go-auth-triplit/authmodel"
	"github.com/jrsteele09/go-auth-triplit/query"
	"github.com/stretchr/testify/require"
)

func TestParseWhereOperators(t *testing.T) {
	tests := []struct {
		operator authmodel.Operator
		value    any
		expected query.Filter
	}{
		{authmodel.OpEq, "a", query.Filter{Field: "f", Op: query.Equal, Value: "a"}},
		{authmodel.OpIn, []string{"a", "b"}, query.Filter{Field: "f", Op: query.In, Value: []string{"a", "b"}}},
		{authmodel.OpContains, "a", query.Filter{Field: "f", Op: query.Like, Value: "%a%"}},
		{authmodel.OpStartsWith, "a", query.Filter{Field: "f", Op: query.Like, Value: "a%"}},
		{authmodel.OpEndsWith, "a", query.Filter{Field: "f", Op: query.Like, Value: "%a"}},
		{authmodel.OpNe, 1, query.Filter{Field: "f", Op: query.NotEqual, Value: 1}},
		{authmodel.OpGt, 1, query.Filter{Field: "f", Op: query.Greater, Value: 1}},
		{authmodel.OpGte, 1, query.Filter{Field: "f", Op: query.GreaterOrEqual, Value: 1}},
		{authmodel.OpLt, 1, query.Filter{Field: "f", Op: query.Less, Value: 1}},
		{authmodel.OpLte, 1, query.Filter{Field: "f", Op: query.LessOrEqual, Value: 1}},
	}

	for _, tt := range tests {
		t.Run(string(tt.operator), func(t *testing.T) {
			parsed := adapter.ParseWhere([]authmodel.Where{{Field: "f", Operator: tt.operator, Value: tt.value}})
			require.Equal(t, []query.Filter{tt.expected}, parsed)
		})
	}
}

func TestParseWherePreservesOrderAndDropsUnknown(t *testing.T) {
	parsed := adapter.ParseWhere([]authmodel.Where{
		{Field: "a", Operator: authmodel.OpEq, Value: 1},
		{Field: "b", Operator: "between", Value: 2},
		{Field: "c", Operator: authmodel.OpStartsWith, Value: "x"},
		{Field: "d", Operator: authmodel.OpLt, Value: 3, Connector: authmodel.Or},
	})

	require.Equal(t, []query.Filter{
		{Field: "a", Op: query.Equal, Value: 1},
		{Field: "c", Op: query.Like, Value: "x%"},
		{Field: "d", Op: query.Less, Value: 3},
	}, parsed)
}

func TestParseWhereDoesNotEscapeWildcards(t *testing.T) {
	parsed := adapter.ParseWhere([]authmodel.Where{
		{Field: "name", Operator: authmodel.OpContains, Value: "50%"},
		{Field: "name", Operator: authmodel.OpEndsWith, Value: "%_"},
	})

	require.Equal(t, "%50%%", parsed[0].Value)
	require.Equal(t, "%%_", parsed[1].Value)
}

func TestParseWhereEmpty(t *testing.T) {
	require.Empty(t, adapter.ParseWhere(nil))
	require.NotNil(t, adapter.ParseWhere(nil))
}

func TestValidateWhere(t *testing.T) {
	require.NoError(t, adapter.ValidateWhere([]authmodel.Where{{Field: "a", Operator: authmodel.OpEq}}))

	err := adapter.ValidateWhere([]authmodel.Where{
		{Field: "a", Operator: authmodel.OpEq},
		{Field: "b", Operator: "regex"},
	})
	require.ErrorIs(t, err, adapter.ErrUnsupportedOperator)
	require.Contains(t, err.Error(), "where[1]")
}
