package operation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/mitchellh/mapstructure"

	"github.com/starford/siyuanflow/internal/apperr"
)

var (
	stringSliceType = reflect.TypeOf([]string(nil))
	stringMapType   = reflect.TypeOf(map[string]string(nil))
)

// bind decodes raw into P and runs P's validation rules.
func bind[P any](raw map[string]any) (P, error) {
	var p P
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			idListHook,
			attrsHook,
		),
	})
	if err != nil {
		return p, err
	}
	if err := dec.Decode(raw); err != nil {
		return p, fmt.Errorf("%w: %v", apperr.ErrInvalidParams, err)
	}
	if v, ok := any(p).(validation.Validatable); ok {
		if err := v.Validate(); err != nil {
			return p, fmt.Errorf("%w: %v", apperr.ErrInvalidParams, err)
		}
	}
	return p, nil
}

// idListHook accepts a JSON array string or a comma separated string where a
// list of ids is expected.
func idListHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != stringSliceType {
		return data, nil
	}
	s := strings.TrimSpace(data.(string))
	if strings.HasPrefix(s, "[") {
		var ids []string
		if err := json.Unmarshal([]byte(s), &ids); err != nil {
			return nil, fmt.Errorf("not a JSON array of strings: %w", err)
		}
		return ids, nil
	}
	ids := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids, nil
}

// attrsHook accepts a JSON object string where an attribute map is expected.
func attrsHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != stringMapType {
		return data, nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(data.(string)), &raw); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("attribute %q must be a string", k)
		}
		out[k] = s
	}
	return out, nil
}
