// Package admin describes how each stored resource is browsed and which bulk
// actions an operator may run on it. The HTTP admin routes and farmctl share it.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb"
)

var (
	ErrUnknownResource = errors.New("unknown resource")
	ErrUnknownAction   = errors.New("unknown action")
)

// Action runs against one record.
type Action func(ctx context.Context, id uuid.UUID) error

// Resource is one registration.
type Resource struct {
	Name     string   `json:"name"`
	Columns  []string `json:"list_display"`
	Filters  []string `json:"list_filter"`
	Search   []string `json:"search_fields"`
	Ordering []string `json:"ordering_fields"`
	Default  string   `json:"ordering"`
	ReadOnly []string `json:"readonly_fields"`
	Actions  []string `json:"actions"`

	actions map[string]Action
	browse  func(ctx context.Context, q models.ListQuery) (models.Page[any], error)
}

// WithAction adds a named bulk action.
func (r *Resource) WithAction(name string, fn Action) *Resource {
	r.actions[name] = fn
	r.Actions = append(r.Actions, name)
	sort.Strings(r.Actions)
	return r
}

// BrowsePage is a page of records projected onto the resource's columns.
type BrowsePage struct {
	Resource string           `json:"resource"`
	Columns  []string         `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	Count    int64            `json:"count"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// ActionResult reports a bulk action. Failures are keyed by record id.
type ActionResult struct {
	Action    string            `json:"action"`
	Succeeded int               `json:"succeeded"`
	Failed    map[string]string `json:"failed,omitempty"`
}

type Registry struct {
	resources map[string]*Resource
}

func NewRegistry() *Registry {
	return &Registry{resources: map[string]*Resource{}}
}

// Register adds a resource browsed straight from its table. Every resource gets
// soft_delete through del.
func Register[T any](reg *Registry, store *gormdb.Store, name string, spec gormdb.ListSpec, columns, readOnly []string, del Action) *Resource {
	r := &Resource{
		Name:     name,
		Columns:  columns,
		Filters:  spec.FilterNames(),
		Search:   spec.Search,
		Ordering: spec.Ordering,
		Default:  spec.Default,
		ReadOnly: append([]string{"id", "created_at", "updated_at"}, readOnly...),
		actions:  map[string]Action{},
		browse: func(ctx context.Context, q models.ListQuery) (models.Page[any], error) {
			page, err := gormdb.List[T](store.Conn(ctx), spec, q)
			if err != nil {
				return models.Page[any]{}, err
			}
			items := make([]any, len(page.Items))
			for i := range page.Items {
				items[i] = page.Items[i]
			}
			return models.Page[any]{Items: items, Count: page.Count, Limit: page.Limit, Offset: page.Offset}, nil
		},
	}
	if del != nil {
		r.WithAction("soft_delete", del)
	}
	reg.resources[name] = r
	return r
}

// Resources lists the registrations by name.
func (reg *Registry) Resources() []*Resource {
	out := make([]*Resource, 0, len(reg.resources))
	for _, r := range reg.resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (reg *Registry) Resource(name string) (*Resource, error) {
	r, ok := reg.resources[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownResource, name)
	}
	return r, nil
}

func (reg *Registry) Browse(ctx context.Context, name string, q models.ListQuery) (BrowsePage, error) {
	r, err := reg.Resource(name)
	if err != nil {
		return BrowsePage{}, err
	}
	page, err := r.browse(ctx, q)
	if err != nil {
		return BrowsePage{}, err
	}
	out := BrowsePage{
		Resource: name,
		Columns:  r.Columns,
		Rows:     make([]map[string]any, 0, len(page.Items)),
		Count:    page.Count,
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	for _, item := range page.Items {
		row, err := project(item, r.Columns)
		if err != nil {
			return BrowsePage{}, err
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// Run applies action to every id. One failing record does not stop the rest.
func (reg *Registry) Run(ctx context.Context, name, action string, ids []uuid.UUID) (ActionResult, error) {
	r, err := reg.Resource(name)
	if err != nil {
		return ActionResult{}, err
	}
	fn, ok := r.actions[action]
	if !ok {
		return ActionResult{}, fmt.Errorf("%w %q on %s", ErrUnknownAction, action, name)
	}
	if len(ids) == 0 {
		return ActionResult{}, models.FieldError("ids", "select at least one record")
	}
	res := ActionResult{Action: action}
	for _, id := range ids {
		if err := fn(ctx, id); err != nil {
			if res.Failed == nil {
				res.Failed = map[string]string{}
			}
			res.Failed[id.String()] = err.Error()
			continue
		}
		res.Succeeded++
	}
	return res, nil
}

// project keeps the listed columns of item's JSON form, plus its id.
func project(item any, columns []string) (map[string]any, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	var all map[string]any
	if err := json.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	row := map[string]any{"id": all["id"]}
	for _, c := range columns {
		row[c] = all[c]
	}
	return row, nil
}
