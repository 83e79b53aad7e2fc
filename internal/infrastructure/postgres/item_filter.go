package postgres

import (
	"strconv"
	"strings"

	"github.com/oksasatya/artesanato/internal/domain/repository"
)

// predicates collects WHERE clauses with positional arguments.
type predicates struct {
	clauses []string
	args    []any
}

func (p *predicates) add(expr string, arg any) {
	p.args = append(p.args, arg)
	p.clauses = append(p.clauses, strings.ReplaceAll(expr, "?", "$"+strconv.Itoa(len(p.args))))
}

func (p *predicates) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.clauses, " AND ")
}

// escapeLike makes user text literal inside an ILIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// itemPredicates turns the populated fields of f into SQL conditions.
// Text matches are case-insensitive substrings, everything else is equality.
func itemPredicates(f repository.ItemFilter) *predicates {
	p := &predicates{}
	p.add("user_id = ?", f.UserID)
	if f.Description != "" {
		p.add("description ILIKE ?", "%"+escapeLike(f.Description)+"%")
	}
	if f.Month != 0 {
		p.add("month = ?", f.Month)
	}
	if f.Year != 0 {
		p.add("year = ?", f.Year)
	}
	if f.Kind != "" {
		p.add("kind = ?", string(f.Kind))
	}
	if f.Status != "" {
		p.add("status = ?", string(f.Status))
	}
	return p
}
