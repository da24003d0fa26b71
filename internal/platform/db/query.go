package db

import (
	"strconv"
	"strings"
)

// SelectQuery assembles a parameterized SELECT. Every value goes through a
// placeholder; only column and table names are written into the SQL text.
type SelectQuery struct {
	cols    string
	from    string
	where   []string
	args    []any
	groupBy string
	orderBy string
	limit   int
	offset  int
}

// Select starts a query over from returning cols.
func Select(cols, from string) *SelectQuery {
	return &SelectQuery{cols: cols, from: from}
}

// Where adds a clause joined with AND. The clause uses ? placeholders for args.
func (q *SelectQuery) Where(clause string, args ...any) *SelectQuery {
	q.where = append(q.where, clause)
	q.args = append(q.args, args...)
	return q
}

// WhereIf adds the clause only when cond holds.
func (q *SelectQuery) WhereIf(cond bool, clause string, args ...any) *SelectQuery {
	if cond {
		return q.Where(clause, args...)
	}
	return q
}

// In adds "col IN (?, ?, ...)". An empty value list matches nothing.
func (q *SelectQuery) In(col string, values ...any) *SelectQuery {
	if len(values) == 0 {
		return q.Where("1 = 0")
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return q.Where(col+" IN ("+marks+")", values...)
}

// Like adds "col LIKE ?" with the value wrapped in % wildcards.
func (q *SelectQuery) Like(col, value string) *SelectQuery {
	return q.Where(col+" LIKE ?", "%"+value+"%")
}

// GroupBy sets the GROUP BY clause.
func (q *SelectQuery) GroupBy(cols string) *SelectQuery {
	q.groupBy = cols
	return q
}

// OrderBy sets the ORDER BY clause.
func (q *SelectQuery) OrderBy(clause string) *SelectQuery {
	q.orderBy = clause
	return q
}

// Page sets LIMIT and OFFSET. A non-positive limit disables paging.
func (q *SelectQuery) Page(limit, offset int) *SelectQuery {
	q.limit = limit
	q.offset = offset
	return q
}

func (q *SelectQuery) whereSQL() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

// Build returns the SQL text and its arguments.
func (q *SelectQuery) Build() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(q.cols)
	b.WriteString(" FROM ")
	b.WriteString(q.from)
	b.WriteString(q.whereSQL())
	if q.groupBy != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(q.groupBy)
	}
	if q.orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.orderBy)
	}
	args := append([]any(nil), q.args...)
	if q.limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.limit))
		if q.offset > 0 {
			b.WriteString(" OFFSET " + strconv.Itoa(q.offset))
		}
	}
	return b.String(), args
}

// CountSQL returns a COUNT(*) over the filtered set, ignoring paging and order.
func (q *SelectQuery) CountSQL() (string, []any) {
	inner := "SELECT 1 FROM " + q.from + q.whereSQL()
	if q.groupBy != "" {
		inner += " GROUP BY " + q.groupBy
	}
	return "SELECT COUNT(*) AS total FROM (" + inner + ")", append([]any(nil), q.args...)
}
