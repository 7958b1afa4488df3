package db

import (
	"strings"
)

// Query helps build SQL queries using bind parameters.
// Use Unsafe to construct fixed parts of a query and use Param to add bind parameters.
// The final query and parameters can be retrieved using the Get method.
//
// The zero value is ready to use.
type Query struct {
	b      strings.Builder
	params []any
}

// Unsafe writes a non-parameterized part of a query.
// Never pass user input to Unsafe.
func (q *Query) Unsafe(s string) {
	q.b.WriteString(s)
}

// Param writes a parameterized part of a query.
func (q *Query) Param(v any) {
	q.b.WriteString("?")
	q.params = append(q.params, v)
}

// Params writes multiple parameterized parts of a query seperated by commas.
func (q *Query) Params(v ...any) {
	for i, p := range v {
		if i > 0 {
			q.b.WriteString(", ")
		}
		q.b.WriteString("?")
		q.params = append(q.params, p)
	}
}

// In writes "col IN (?, ?, ...)" for the given values. It writes a clause that
// matches nothing when values is empty.
func (q *Query) In(col string, values ...any) {
	if len(values) == 0 {
		q.b.WriteString("1=0")
		return
	}

	q.b.WriteString(col)
	q.b.WriteString(" IN (")
	q.Params(values...)
	q.b.WriteString(")")
}

// Get returns the constructed query and parameter values.
func (q *Query) Get() (string, []any) {
	return q.b.String(), q.params
}

// AnySlice converts a typed slice to a slice of any, for use with Params and In.
func AnySlice[T any](s []T) []any {
	out := make([]any, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}
