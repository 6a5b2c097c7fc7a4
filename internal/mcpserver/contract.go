package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/siyuanflow/internal/operation"
)

const referenceHeader = `# SiYuan Operation Reference

Every tool calls one kernel endpoint. Results are the kernel's data as JSON.
Operations without a result return {"success": true}.

## Conventions

1. IDs are block IDs such as ` + "`20210808180117-czj9bvb`" + `. A document's ID is the ID of its root block.
2. Paths for createDoc and getDocIdByPath are human-readable: ` + "`/Inbox/Meeting`" + `.
3. Block content is markdown unless ` + "`dataType`" + ` is ` + "`dom`" + `.
4. Only ` + "`custom-*`" + ` attributes and title, name, alias, memo, bookmark, icon can be set.
   Other keys are dropped silently.
5. Failed calls return an error text in one of three forms:
   ` + "`API Error (...)`" + ` when the kernel rejected the call,
   ` + "`Request Failed (...)`" + ` when the kernel could not be reached,
   ` + "`Unexpected error during request (...)`" + ` otherwise.

## Operations
`

// Reference renders the catalog as a markdown document.
func Reference(cat *operation.Catalog) string {
	var b strings.Builder
	b.WriteString(referenceHeader)
	for _, op := range cat.Operations() {
		fmt.Fprintf(&b, "\n### %s (`%s`)\n\n%s\n", op.Name, ToolName(op.Name), op.Description)
		if op.Destructive {
			b.WriteString("\n**Destructive.** This cannot be undone.\n")
		}
		if len(op.Params) == 0 {
			continue
		}
		b.WriteString("\n| Parameter | Type | Required | Description |\n|---|---|---|---|\n")
		for _, p := range op.Params {
			req := "no"
			if p.Required {
				req = "yes"
			}
			desc := p.Description
			if p.Default != nil {
				desc += fmt.Sprintf(" (default %v)", p.Default)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", p.Name, p.Type, req, desc)
		}
	}
	return b.String()
}
