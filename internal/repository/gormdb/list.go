package gormdb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

type FilterKind int

const (
	FilterString FilterKind = iota
	FilterBool
	FilterUUID
	FilterDate
	FilterInt
)

// Filter describes one whitelisted list filter. Expr, when set, replaces the plain
// "column = ?" condition and receives the parsed value as its single argument.
type Filter struct {
	Column string
	Kind   FilterKind
	Expr   string
}

// ListSpec is the per-resource whitelist a list request is checked against.
// Date filters also accept "<name>_from" and "<name>_to" bounds, both inclusive.
type ListSpec struct {
	Filters  map[string]Filter
	Search   []string
	Ordering []string
	Default  string
}

// FilterNames returns the accepted filter keys.
func (s ListSpec) FilterNames() []string {
	names := make([]string, 0, len(s.Filters))
	for name, f := range s.Filters {
		names = append(names, name)
		if f.Kind == FilterDate {
			names = append(names, name+"_from", name+"_to")
		}
	}
	return names
}

// List returns one page of live records of T matching q.
func List[T any](db *gorm.DB, spec ListSpec, q models.ListQuery) (models.Page[T], error) {
	q = q.Normalize()
	page := models.Page[T]{Limit: q.Limit, Offset: q.Offset, Items: []T{}}

	tx := db.Model(new(T)).Where("is_deleted = ?", false)
	tx, err := spec.apply(tx, q)
	if err != nil {
		return page, err
	}
	order, err := spec.order(q.Ordering)
	if err != nil {
		return page, err
	}

	base := tx.Session(&gorm.Session{})
	if err := base.Count(&page.Count).Error; err != nil {
		return page, fmt.Errorf("count: %w", err)
	}
	if err := base.Order(order).Limit(q.Limit).Offset(q.Offset).Find(&page.Items).Error; err != nil {
		return page, fmt.Errorf("list: %w", err)
	}
	return page, nil
}

func (s ListSpec) apply(tx *gorm.DB, q models.ListQuery) (*gorm.DB, error) {
	verr := &models.ValidationError{}
	for key, raw := range q.Filters {
		if raw == "" {
			continue
		}
		name, op := key, "="
		f, ok := s.Filters[key]
		if !ok {
			switch {
			case strings.HasSuffix(key, "_from"):
				name, op = strings.TrimSuffix(key, "_from"), ">="
			case strings.HasSuffix(key, "_to"):
				name, op = strings.TrimSuffix(key, "_to"), "<="
			}
			f, ok = s.Filters[name]
			if !ok || f.Kind != FilterDate || op == "=" {
				verr.Add(key, "unknown filter")
				continue
			}
		}
		value, err := parseFilterValue(f.Kind, raw)
		if err != nil {
			verr.Add(key, err.Error())
			continue
		}
		switch {
		case f.Expr != "" && op == "=":
			tx = tx.Where(f.Expr, value)
		default:
			tx = tx.Where(fmt.Sprintf("%s %s ?", f.Column, op), value)
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if term := strings.TrimSpace(q.Search); term != "" && len(s.Search) > 0 {
		conds := make([]string, 0, len(s.Search))
		args := make([]any, 0, len(s.Search))
		like := "%" + strings.ToLower(term) + "%"
		for _, col := range s.Search {
			conds = append(conds, "LOWER("+col+") LIKE ?")
			args = append(args, like)
		}
		tx = tx.Where("("+strings.Join(conds, " OR ")+")", args...)
	}
	return tx, nil
}

func (s ListSpec) order(requested string) (string, error) {
	if strings.TrimSpace(requested) == "" {
		requested = s.Default
	}
	allowed := make(map[string]struct{}, len(s.Ordering))
	for _, f := range s.Ordering {
		allowed[f] = struct{}{}
	}

	var clauses []string
	hasID := false
	for _, part := range strings.Split(requested, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dir := "ASC"
		if strings.HasPrefix(part, "-") {
			dir, part = "DESC", part[1:]
		}
		if _, ok := allowed[part]; !ok && part != "id" {
			return "", models.FieldError("ordering", fmt.Sprintf("cannot order by %q", part))
		}
		if part == "id" {
			hasID = true
		}
		clauses = append(clauses, part+" "+dir)
	}
	if !hasID {
		clauses = append(clauses, "id ASC")
	}
	return strings.Join(clauses, ", "), nil
}

func parseFilterValue(kind FilterKind, raw string) (any, error) {
	switch kind {
	case FilterBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("expected true or false")
		}
		return b, nil
	case FilterUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("expected a uuid")
		}
		return id, nil
	case FilterDate:
		d, err := models.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		return d, nil
	case FilterInt:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("expected an integer")
		}
		return n, nil
	default:
		return raw, nil
	}
}
