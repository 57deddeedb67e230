package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

// CondBuilder is satisfied by the go-sqlbuilder statement builders
type CondBuilder interface {
	Equal(field string, value interface{}) string
	Or(orExpr ...string) string
	Var(arg interface{}) string
}

var _ CondBuilder = (*sqlbuilder.SelectBuilder)(nil)

// Match is one column equality of an OR-set lookup. Column names are never
// user input.
type Match struct {
	Column string
	Value  any
}

// AnyOf returns a condition true when any match holds
func AnyOf(cond CondBuilder, matches []Match) string {
	exprs := make([]string, 0, len(matches))
	for _, m := range matches {
		exprs = append(exprs, cond.Equal(m.Column, m.Value))
	}
	return cond.Or(exprs...)
}

// PriorityOrder returns an ORDER BY expression ranking rows by the first
// match they satisfy, so earlier matches sort first.
func PriorityOrder(cond CondBuilder, matches []Match) string {
	var b strings.Builder
	b.WriteString("CASE")
	for i, m := range matches {
		fmt.Fprintf(&b, " WHEN %s = %s THEN %d", m.Column, cond.Var(m.Value), i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(matches))
	return b.String()
}

// EscapeLike escapes the LIKE wildcards in s so it matches literally
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
