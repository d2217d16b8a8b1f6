package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// cond is a parameterized SQL fragment.
type cond struct {
	sql  string
	args []any
}

func newCond(sql string, args ...any) cond {
	return cond{sql: sql, args: args}
}

// join combines fragments with AND or OR, wrapping the result in parentheses.
func join(relation string, conds []cond) (cond, bool) {
	if len(conds) == 0 {
		return cond{}, false
	}
	if len(conds) == 1 {
		return conds[0], true
	}

	parts := make([]string, len(conds))
	var args []any
	for i, c := range conds {
		parts[i] = "(" + c.sql + ")"
		args = append(args, c.args...)
	}

	sep := " AND "
	if relation == relationOr {
		sep = " OR "
	}
	return cond{sql: strings.Join(parts, sep), args: args}, true
}

const termSubquery = `SELECT pt.post_id FROM post_terms pt JOIN terms t ON t.id = pt.term_id WHERE t.taxonomy = ?`

// taxCondition builds the fragment for one taxonomy clause.
func taxCondition(c TaxClause) (cond, bool) {
	switch c.Operator {
	case "EXISTS":
		return newCond("posts.id IN ("+termSubquery+")", c.Taxonomy), true
	case "NOT EXISTS":
		return newCond("posts.id NOT IN ("+termSubquery+")", c.Taxonomy), true
	}

	if len(c.Terms) == 0 {
		return cond{}, false
	}

	var match string
	var terms any
	switch c.Field {
	case "slug":
		match, terms = "t.slug = ANY(?)", pq.Array(c.Terms)
	case "name":
		match, terms = "t.name = ANY(?)", pq.Array(c.Terms)
	default:
		ids := make([]int64, 0, len(c.Terms))
		for _, s := range c.Terms {
			if id, err := strconv.ParseInt(s, 10, 64); err == nil && id > 0 {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			return cond{}, false
		}
		match, terms = "t.id = ANY(?)", pq.Array(ids)
	}

	sub := termSubquery + " AND " + match
	switch c.Operator {
	case "NOT IN":
		return newCond("posts.id NOT IN ("+sub+")", c.Taxonomy, terms), true
	case "AND":
		return newCond(
			"posts.id IN ("+sub+" GROUP BY pt.post_id HAVING COUNT(DISTINCT t.id) = ?)",
			c.Taxonomy, terms, len(c.Terms),
		), true
	default:
		return newCond("posts.id IN ("+sub+")", c.Taxonomy, terms), true
	}
}

// numericMeta casts meta values that look numeric and yields NULL otherwise.
// The pattern avoids "?" so it is not taken for a bind placeholder.
const numericMeta = `(CASE WHEN pm.meta_value ~ '^-{0,1}[0-9]+(\.[0-9]+){0,1}$' THEN pm.meta_value::numeric END)`

// metaCondition builds the fragment for one meta clause.
func metaCondition(c MetaClause) (cond, bool) {
	exists := "EXISTS (SELECT 1 FROM post_meta pm WHERE pm.post_id = posts.id AND pm.meta_key = ?"

	switch c.Compare {
	case "EXISTS":
		return newCond(exists+")", c.Key), true
	case "NOT EXISTS":
		return newCond("NOT "+exists+")", c.Key), true
	}

	if len(c.Values) == 0 {
		return newCond(exists+")", c.Key), true
	}

	column := "pm.meta_value"
	var values []any
	if c.Type == "NUMERIC" || c.Type == "SIGNED" || c.Type == "UNSIGNED" || c.Type == "DECIMAL" {
		column = numericMeta
		for _, v := range c.Values {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				values = append(values, f)
			}
		}
		if len(values) == 0 {
			return cond{}, false
		}
	} else {
		for _, v := range c.Values {
			values = append(values, v)
		}
	}

	var expr string
	args := []any{c.Key}
	switch c.Compare {
	case "IN", "NOT IN":
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
		expr = fmt.Sprintf("%s %s (%s)", column, c.Compare, placeholders)
		args = append(args, values...)
	case "BETWEEN", "NOT BETWEEN":
		if len(values) < 2 {
			return cond{}, false
		}
		expr = fmt.Sprintf("%s %s ? AND ?", column, c.Compare)
		args = append(args, values[0], values[1])
	case "LIKE", "NOT LIKE":
		expr = fmt.Sprintf("%s %s ?", column, c.Compare)
		args = append(args, "%"+escapeLike(fmt.Sprint(values[0]))+"%")
	default:
		expr = fmt.Sprintf("%s %s ?", column, c.Compare)
		args = append(args, values[0])
	}

	return cond{sql: exists + " AND " + expr + ")", args: args}, true
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var dateParts = []string{"year", "month", "week", "day", "hour", "minute", "second"}

// dateCondition builds the fragment for one date clause.
func dateCondition(c DateClause) (cond, bool) {
	column := "posts.published_at"
	if c.Column == "post_modified" {
		column = "posts.modified_at"
	}

	var conds []cond
	if c.After != nil {
		op := ">"
		if c.Inclusive {
			op = ">="
		}
		conds = append(conds, newCond(column+" "+op+" ?", *c.After))
	}
	if c.Before != nil {
		op := "<"
		if c.Inclusive {
			op = "<="
		}
		conds = append(conds, newCond(column+" "+op+" ?", *c.Before))
	}

	compare := c.Compare
	switch compare {
	case "=", "!=", ">", ">=", "<", "<=":
	default:
		compare = "="
	}
	for _, part := range dateParts {
		n, ok := c.Parts[part]
		if !ok {
			continue
		}
		field := strings.ToUpper(part)
		conds = append(conds, newCond(fmt.Sprintf("EXTRACT(%s FROM %s) %s ?", field, column, compare), n))
	}

	return join(relationAnd, conds)
}
