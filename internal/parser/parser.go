// Package parser splits vault markdown into frontmatter and body and turns
// the frontmatter into block attributes.
package parser

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"gopkg.in/yaml.v3"

	"github.com/starford/siyuanflow/internal/siyuan"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

// builtinKeys are frontmatter keys passed through as built-in attributes.
var builtinKeys = map[string]bool{"alias": true, "memo": true, "bookmark": true, "icon": true, "name": true}

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, title and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
	}, nil
}

// Attrs converts the frontmatter into block attributes. Known keys map to
// built-in attributes, tags are joined into custom-tags, other scalar keys
// become custom-<kebab-key>. Nested values are skipped.
func (r *Result) Attrs() map[string]string {
	out := make(map[string]string)
	if r.Title != "" {
		out["title"] = r.Title
	}
	if len(r.Tags) > 0 {
		out[siyuan.CustomAttrPrefix+"tags"] = strings.Join(r.Tags, ",")
	}
	keys := make([]string, 0, len(r.Frontmatter))
	for k := range r.Frontmatter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "title" || k == "tags" {
			continue
		}
		v, ok := scalar(r.Frontmatter[k])
		if !ok {
			continue
		}
		if builtinKeys[k] {
			out[k] = v
			continue
		}
		name := strcase.ToKebab(k)
		if name == "" {
			continue
		}
		out[siyuan.CustomAttrPrefix+name] = v
	}
	return out
}

// scalar renders a decoded YAML scalar as an attribute value. yaml.v3 turns
// unquoted dates into time.Time; a bare date stays a bare date.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(t), true
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case time.Time:
		if t.Equal(t.Truncate(24*time.Hour)) && t.Location() == time.UTC {
			return t.Format(time.DateOnly), true
		}
		return t.Format(time.RFC3339), true
	default:
		return "", false
	}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Broken YAML is kept as part of the document.
		return nil, string(data)
	}

	return fm, body
}

// extractTags collects tags from the frontmatter "tags" field and inline #tags.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
