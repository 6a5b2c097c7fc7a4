package siyuan

import (
	"context"
	"slices"
	"strings"
)

// CustomAttrPrefix marks user-defined block attributes.
const CustomAttrPrefix = "custom-"

var builtinAttrs = []string{"title", "name", "alias", "memo", "bookmark", "icon"}

// AllowedAttr reports whether the kernel accepts key as a settable attribute.
func AllowedAttr(key string) bool {
	return strings.HasPrefix(key, CustomAttrPrefix) || slices.Contains(builtinAttrs, key)
}

// FilterAttrs returns the subset of attrs whose keys are allowed.
func FilterAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if AllowedAttr(k) {
			out[k] = v
		}
	}
	return out
}

// SetBlockAttrs sets attributes on a block. Keys that are neither custom
// nor built-in are dropped before the request is sent.
func (c *Client) SetBlockAttrs(ctx context.Context, id string, attrs map[string]string) error {
	return exec(ctx, c, "/api/attr/setBlockAttrs", Payload{"id": id, "attrs": FilterAttrs(attrs)})
}

// GetBlockAttrs returns every attribute of a block.
func (c *Client) GetBlockAttrs(ctx context.Context, id string) (map[string]string, error) {
	return call[map[string]string](ctx, c, "/api/attr/getBlockAttrs", Payload{"id": id})
}
