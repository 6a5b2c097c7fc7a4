// Package operation is the named catalog of kernel operations that callers
// (CLI, gateway, MCP tools, batch runs) dispatch by name with loosely typed
// parameters.
package operation

import (
	"context"
	"fmt"
	"sort"

	"github.com/starford/siyuanflow/internal/apperr"
	"github.com/starford/siyuanflow/internal/siyuan"
)

// ParamType is the JSON type a parameter expects.
type ParamType string

const (
	TypeString ParamType = "string"
	TypeNumber ParamType = "number"
	TypeArray  ParamType = "array"
	TypeObject ParamType = "object"
)

// Param describes one operation parameter.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	Default     any       `json:"default,omitempty"`
}

// Operation is a named kernel call.
type Operation struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Destructive bool    `json:"destructive,omitempty"`
	Params      []Param `json:"params"`

	run func(ctx context.Context, c *siyuan.Client, raw map[string]any) (any, error)
}

// Catalog maps operation names to operations.
type Catalog struct {
	ops         map[string]Operation
	readOnlySQL bool
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithReadOnlySQL makes sqlQuery reject statements that modify data.
func WithReadOnlySQL(on bool) CatalogOption {
	return func(c *Catalog) {
		c.readOnlySQL = on
	}
}

// NewCatalog returns a catalog holding every built-in operation.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{ops: make(map[string]Operation)}
	for _, opt := range opts {
		opt(c)
	}
	for _, op := range builtin(c) {
		c.ops[op.Name] = op
	}
	return c
}

// Lookup returns the operation called name.
func (c *Catalog) Lookup(name string) (Operation, bool) {
	op, ok := c.ops[name]
	return op, ok
}

// Operations returns all operations sorted by name.
func (c *Catalog) Operations() []Operation {
	out := make([]Operation, 0, len(c.ops))
	for _, op := range c.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke runs the operation called name. Kernel failures come back as
// *siyuan.Error unchanged. Parameter problems wrap apperr.ErrInvalidParams.
// Operations without a result report {"success": true}.
func (c *Catalog) Invoke(ctx context.Context, client *siyuan.Client, name string, params map[string]any) (any, error) {
	op, ok := c.ops[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperr.ErrUnknownOperation, name)
	}
	if params == nil {
		params = map[string]any{}
	}
	out, err := op.run(ctx, client, params)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return map[string]any{"success": true}, nil
	}
	return out, nil
}

// define builds an Operation whose parameters decode into P.
func define[P any](name, desc string, params []Param, fn func(context.Context, *siyuan.Client, P) (any, error)) Operation {
	return Operation{
		Name:        name,
		Description: desc,
		Params:      params,
		run: func(ctx context.Context, c *siyuan.Client, raw map[string]any) (any, error) {
			p, err := bind[P](withDefaults(raw, params))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return fn(ctx, c, p)
		},
	}
}

func destructive(op Operation) Operation {
	op.Destructive = true
	return op
}

func withDefaults(raw map[string]any, params []Param) map[string]any {
	out := make(map[string]any, len(raw)+len(params))
	for k, v := range raw {
		out[k] = v
	}
	for _, p := range params {
		if _, ok := out[p.Name]; !ok && p.Default != nil {
			out[p.Name] = p.Default
		}
	}
	return out
}
