package operation

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/siyuanflow/internal/siyuan"
)

var dataTypeRule = validation.In(string(siyuan.DataTypeMarkdown), string(siyuan.DataTypeDOM))

type idParams struct {
	ID string `mapstructure:"id" json:"id"`
}

func (p idParams) Validate() error {
	return validation.ValidateStruct(&p, validation.Field(&p.ID, validation.Required))
}

type notebookParams struct {
	Notebook string `mapstructure:"notebook" json:"notebook"`
}

func (p notebookParams) Validate() error {
	return validation.ValidateStruct(&p, validation.Field(&p.Notebook, validation.Required))
}

type noParams struct{}

type createDocParams struct {
	Notebook string `mapstructure:"notebook" json:"notebook"`
	Path     string `mapstructure:"path" json:"path"`
	Markdown string `mapstructure:"markdown" json:"markdown"`
}

func (p createDocParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Notebook, validation.Required),
		validation.Field(&p.Path, validation.Required),
	)
}

type renameDocParams struct {
	ID    string `mapstructure:"id" json:"id"`
	Title string `mapstructure:"title" json:"title"`
}

func (p renameDocParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Title, validation.Required),
	)
}

type moveDocParams struct {
	FromIDs []string `mapstructure:"fromIDs" json:"fromIDs"`
	ToID    string   `mapstructure:"toID" json:"toID"`
}

func (p moveDocParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FromIDs, validation.Required),
		validation.Field(&p.ToID, validation.Required),
	)
}

type docPathParams struct {
	Notebook string `mapstructure:"notebook" json:"notebook"`
	Path     string `mapstructure:"path" json:"path"`
}

func (p docPathParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Notebook, validation.Required),
		validation.Field(&p.Path, validation.Required),
	)
}

type nameParams struct {
	Name string `mapstructure:"name" json:"name"`
}

func (p nameParams) Validate() error {
	return validation.ValidateStruct(&p, validation.Field(&p.Name, validation.Required))
}

type renameNotebookParams struct {
	Notebook string `mapstructure:"notebook" json:"notebook"`
	Name     string `mapstructure:"name" json:"name"`
}

func (p renameNotebookParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Notebook, validation.Required),
		validation.Field(&p.Name, validation.Required),
	)
}

type dirParams struct {
	Path string `mapstructure:"path" json:"path"`
}

func (p dirParams) Validate() error {
	return validation.ValidateStruct(&p, validation.Field(&p.Path, validation.Required))
}

type parentBlockParams struct {
	ParentID string `mapstructure:"parentID" json:"parentID"`
	Data     string `mapstructure:"data" json:"data"`
	DataType string `mapstructure:"dataType" json:"dataType"`
}

func (p parentBlockParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ParentID, validation.Required),
		validation.Field(&p.Data, validation.Required),
		validation.Field(&p.DataType, dataTypeRule),
	)
}

type insertBlockParams struct {
	Data       string `mapstructure:"data" json:"data"`
	DataType   string `mapstructure:"dataType" json:"dataType"`
	PreviousID string `mapstructure:"previousID" json:"previousID"`
	NextID     string `mapstructure:"nextID" json:"nextID"`
	ParentID   string `mapstructure:"parentID" json:"parentID"`
}

func (p insertBlockParams) Validate() error {
	anchored := p.PreviousID != "" || p.NextID != "" || p.ParentID != ""
	return validation.ValidateStruct(&p,
		validation.Field(&p.Data, validation.Required),
		validation.Field(&p.DataType, dataTypeRule),
		validation.Field(&p.ParentID, validation.When(!anchored,
			validation.Required.Error("one of previousID, nextID or parentID is required"))),
	)
}

type updateBlockParams struct {
	ID       string `mapstructure:"id" json:"id"`
	Data     string `mapstructure:"data" json:"data"`
	DataType string `mapstructure:"dataType" json:"dataType"`
}

func (p updateBlockParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.DataType, dataTypeRule),
	)
}

type setAttrsParams struct {
	ID    string            `mapstructure:"id" json:"id"`
	Attrs map[string]string `mapstructure:"attrs" json:"attrs"`
}

func (p setAttrsParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Attrs, validation.Required),
	)
}

type sqlParams struct {
	Stmt string `mapstructure:"stmt" json:"stmt"`
}

func (p sqlParams) Validate() error {
	return validation.ValidateStruct(&p, validation.Field(&p.Stmt, validation.Required))
}

type templateParams struct {
	Template string `mapstructure:"template" json:"template"`
}

func (p templateParams) Validate() error {
	return validation.ValidateStruct(&p, validation.Field(&p.Template, validation.Required))
}

type notifyParams struct {
	Msg     string `mapstructure:"msg" json:"msg"`
	Timeout int    `mapstructure:"timeout" json:"timeout"`
}

func (p notifyParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Msg, validation.Required),
		validation.Field(&p.Timeout, validation.Min(0)),
	)
}

var (
	pID         = Param{Name: "id", Type: TypeString, Required: true, Description: "Block or document ID"}
	pNotebook   = Param{Name: "notebook", Type: TypeString, Required: true, Description: "Notebook ID"}
	pBlockData  = Param{Name: "data", Type: TypeString, Required: true, Description: "Block content"}
	pDataType   = Param{Name: "dataType", Type: TypeString, Default: "markdown", Description: "Content format: markdown or dom"}
	pParentID   = Param{Name: "parentID", Type: TypeString, Required: true, Description: "Parent block ID"}
	pNotifyText = Param{Name: "msg", Type: TypeString, Required: true, Description: "Message text"}
	pTimeout    = Param{Name: "timeout", Type: TypeNumber, Default: 7000, Description: "How long the message stays visible, in milliseconds"}
)

func builtin(cat *Catalog) []Operation {
	return []Operation{
		define("createDoc", "Create a document in a notebook from markdown",
			[]Param{pNotebook,
				{Name: "path", Type: TypeString, Required: true, Description: "Human-readable path of the new document, e.g. /Inbox/Meeting"},
				{Name: "markdown", Type: TypeString, Description: "Markdown content"}},
			func(ctx context.Context, c *siyuan.Client, p createDocParams) (any, error) {
				id, err := c.CreateDocWithMd(ctx, p.Notebook, p.Path, p.Markdown)
				if err != nil {
					return nil, err
				}
				return map[string]any{"id": id}, nil
			}),
		define("renameDoc", "Change a document's title",
			[]Param{pID, {Name: "title", Type: TypeString, Required: true, Description: "New title"}},
			func(ctx context.Context, c *siyuan.Client, p renameDocParams) (any, error) {
				return nil, c.RenameDocByID(ctx, p.ID, p.Title)
			}),
		destructive(define("removeDoc", "Delete a document",
			[]Param{pID},
			func(ctx context.Context, c *siyuan.Client, p idParams) (any, error) {
				return nil, c.RemoveDocByID(ctx, p.ID)
			})),
		define("moveDoc", "Move one or more documents under a notebook or document",
			[]Param{
				{Name: "fromIDs", Type: TypeArray, Required: true, Description: "Document IDs to move (array, JSON array string or comma separated)"},
				{Name: "toID", Type: TypeString, Required: true, Description: "Destination notebook or document ID"}},
			func(ctx context.Context, c *siyuan.Client, p moveDocParams) (any, error) {
				if err := c.MoveDocsByID(ctx, p.FromIDs, p.ToID); err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "movedDocumentIds": p.FromIDs, "targetParentId": p.ToID}, nil
			}),
		define("getDocIdByPath", "Find document IDs by human-readable path",
			[]Param{pNotebook, {Name: "path", Type: TypeString, Required: true, Description: "Human-readable path, e.g. /Inbox/Meeting"}},
			func(ctx context.Context, c *siyuan.Client, p docPathParams) (any, error) {
				return c.GetIDsByHPath(ctx, p.Path, p.Notebook)
			}),
		define("getDocPathById", "Get the human-readable path of a document",
			[]Param{pID},
			func(ctx context.Context, c *siyuan.Client, p idParams) (any, error) {
				return c.GetHPathByID(ctx, p.ID)
			}),
		define("listDocsInNotebook", "List documents stored directly in a notebook with their titles",
			[]Param{pNotebook},
			func(ctx context.Context, c *siyuan.Client, p notebookParams) (any, error) {
				return c.ListDocsInNotebook(ctx, p.Notebook)
			}),
		define("listNotebooks", "List all notebooks",
			nil,
			func(ctx context.Context, c *siyuan.Client, _ noParams) (any, error) {
				return c.ListNotebooks(ctx)
			}),
		define("createNotebook", "Create an empty notebook",
			[]Param{{Name: "name", Type: TypeString, Required: true, Description: "Notebook name"}},
			func(ctx context.Context, c *siyuan.Client, p nameParams) (any, error) {
				return c.CreateNotebook(ctx, p.Name)
			}),
		define("renameNotebook", "Rename a notebook",
			[]Param{pNotebook, {Name: "name", Type: TypeString, Required: true, Description: "New notebook name"}},
			func(ctx context.Context, c *siyuan.Client, p renameNotebookParams) (any, error) {
				return nil, c.RenameNotebook(ctx, p.Notebook, p.Name)
			}),
		destructive(define("removeNotebook", "Delete a notebook and all of its documents",
			[]Param{pNotebook},
			func(ctx context.Context, c *siyuan.Client, p notebookParams) (any, error) {
				return nil, c.RemoveNotebook(ctx, p.Notebook)
			})),
		define("openNotebook", "Open a closed notebook",
			[]Param{pNotebook},
			func(ctx context.Context, c *siyuan.Client, p notebookParams) (any, error) {
				return nil, c.OpenNotebook(ctx, p.Notebook)
			}),
		define("closeNotebook", "Close a notebook; its documents stay on disk",
			[]Param{pNotebook},
			func(ctx context.Context, c *siyuan.Client, p notebookParams) (any, error) {
				return nil, c.CloseNotebook(ctx, p.Notebook)
			}),
		define("listFilesInDir", "List files and folders of a workspace directory, e.g. /data/<notebook>/",
			[]Param{{Name: "path", Type: TypeString, Required: true, Description: "Workspace-relative directory"}},
			func(ctx context.Context, c *siyuan.Client, p dirParams) (any, error) {
				return c.ReadDir(ctx, p.Path)
			}),
		define("appendBlock", "Append a block as the last child of a parent block",
			[]Param{pParentID, pBlockData, pDataType},
			func(ctx context.Context, c *siyuan.Client, p parentBlockParams) (any, error) {
				return c.AppendBlock(ctx, p.ParentID, p.Data, siyuan.DataType(p.DataType))
			}),
		define("prependBlock", "Prepend a block as the first child of a parent block",
			[]Param{pParentID, pBlockData, pDataType},
			func(ctx context.Context, c *siyuan.Client, p parentBlockParams) (any, error) {
				return c.PrependBlock(ctx, p.ParentID, p.Data, siyuan.DataType(p.DataType))
			}),
		define("insertBlock", "Insert a block before or after a sibling, or under a parent",
			[]Param{pBlockData, pDataType,
				{Name: "previousID", Type: TypeString, Description: "Insert after this block"},
				{Name: "nextID", Type: TypeString, Description: "Insert before this block"},
				{Name: "parentID", Type: TypeString, Description: "Insert under this block"}},
			func(ctx context.Context, c *siyuan.Client, p insertBlockParams) (any, error) {
				return c.InsertBlock(ctx, p.Data, siyuan.DataType(p.DataType), siyuan.InsertAnchor{
					PreviousID: p.PreviousID,
					NextID:     p.NextID,
					ParentID:   p.ParentID,
				})
			}),
		define("updateBlock", "Replace the content of a block",
			[]Param{pID, {Name: "data", Type: TypeString, Description: "New block content"}, pDataType},
			func(ctx context.Context, c *siyuan.Client, p updateBlockParams) (any, error) {
				return c.UpdateBlock(ctx, p.ID, p.Data, siyuan.DataType(p.DataType))
			}),
		destructive(define("deleteBlock", "Delete a block",
			[]Param{pID},
			func(ctx context.Context, c *siyuan.Client, p idParams) (any, error) {
				return c.DeleteBlock(ctx, p.ID)
			})),
		define("getBlockKramdown", "Get the kramdown source of a block",
			[]Param{pID},
			func(ctx context.Context, c *siyuan.Client, p idParams) (any, error) {
				return c.GetBlockKramdown(ctx, p.ID)
			}),
		define("getChildBlocks", "List the direct children of a block",
			[]Param{pID},
			func(ctx context.Context, c *siyuan.Client, p idParams) (any, error) {
				return c.GetChildBlocks(ctx, p.ID)
			}),
		define("setBlockAttrs", "Set block attributes; keys must start with custom- or be one of title, name, alias, memo, bookmark, icon",
			[]Param{pID, {Name: "attrs", Type: TypeObject, Required: true, Description: "Attribute map (object or JSON object string)"}},
			func(ctx context.Context, c *siyuan.Client, p setAttrsParams) (any, error) {
				if err := c.SetBlockAttrs(ctx, p.ID, p.Attrs); err != nil {
					return nil, err
				}
				return map[string]any{"success": true, "blockId": p.ID, "attributesSet": siyuan.FilterAttrs(p.Attrs)}, nil
			}),
		define("getBlockAttrs", "Get all attributes of a block",
			[]Param{pID},
			func(ctx context.Context, c *siyuan.Client, p idParams) (any, error) {
				return c.GetBlockAttrs(ctx, p.ID)
			}),
		define("sqlQuery", "Run a SQL query against the note database",
			[]Param{{Name: "stmt", Type: TypeString, Required: true, Description: "SQL statement, e.g. SELECT * FROM blocks LIMIT 10"}},
			func(ctx context.Context, c *siyuan.Client, p sqlParams) (any, error) {
				if cat.readOnlySQL {
					if err := CheckReadOnly(p.Stmt); err != nil {
						return nil, err
					}
				}
				return c.SQL(ctx, p.Stmt)
			}),
		define("exportDocMd", "Export a document as markdown with its human-readable path",
			[]Param{pID},
			func(ctx context.Context, c *siyuan.Client, p idParams) (any, error) {
				return c.ExportMdContent(ctx, p.ID)
			}),
		define("renderSprig", "Render a template with sprig functions",
			[]Param{{Name: "template", Type: TypeString, Required: true, Description: "Template text"}},
			func(ctx context.Context, c *siyuan.Client, p templateParams) (any, error) {
				return c.RenderSprig(ctx, p.Template)
			}),
		define("pushMsg", "Show an informational toast in the note UI",
			[]Param{pNotifyText, pTimeout},
			func(ctx context.Context, c *siyuan.Client, p notifyParams) (any, error) {
				return c.PushMsg(ctx, p.Msg, time.Duration(p.Timeout)*time.Millisecond)
			}),
		define("pushErrMsg", "Show an error toast in the note UI",
			[]Param{pNotifyText, pTimeout},
			func(ctx context.Context, c *siyuan.Client, p notifyParams) (any, error) {
				return c.PushErrMsg(ctx, p.Msg, time.Duration(p.Timeout)*time.Millisecond)
			}),
		define("getVersion", "Get the kernel version",
			nil,
			func(ctx context.Context, c *siyuan.Client, _ noParams) (any, error) {
				return c.Version(ctx)
			}),
		define("getCurrentTime", "Get the kernel clock in milliseconds since the epoch",
			nil,
			func(ctx context.Context, c *siyuan.Client, _ noParams) (any, error) {
				return c.CurrentTime(ctx)
			}),
	}
}
