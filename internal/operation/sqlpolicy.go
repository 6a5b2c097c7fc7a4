package operation

import (
	"fmt"
	"strings"

	"github.com/starford/siyuanflow/internal/apperr"
)

var writeVerbs = []string{"update", "insert", "delete", "drop", "alter"}

// CheckReadOnly rejects statements that start with a data-modifying verb.
// It is a guard for tool callers, not a SQL parser.
func CheckReadOnly(stmt string) error {
	s := strings.ToLower(strings.TrimSpace(stmt))
	for _, verb := range writeVerbs {
		if strings.HasPrefix(s, verb+" ") || strings.HasPrefix(s, verb+"\n") || strings.HasPrefix(s, verb+"\t") {
			return fmt.Errorf("%w: only SELECT statements are allowed, got %q", apperr.ErrStatementNotAllowed, verb)
		}
	}
	return nil
}
