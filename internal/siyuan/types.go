package siyuan

// DataType tags the format of block content.
type DataType string

const (
	DataTypeMarkdown DataType = "markdown"
	DataTypeDOM      DataType = "dom"
)

func (d DataType) orDefault() DataType {
	if d == "" {
		return DataTypeMarkdown
	}
	return d
}

// Notebook describes one notebook (box) of the workspace.
type Notebook struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Icon   string `json:"icon"`
	Sort   int    `json:"sort"`
	Closed bool   `json:"closed"`
}

// DirEntry is one entry of a workspace directory listing.
type DirEntry struct {
	IsDir     bool   `json:"isDir"`
	IsSymlink bool   `json:"isSymlink"`
	Name      string `json:"name"`
	Updated   int64  `json:"updated"`
}

// ListedDocument is a document found in a notebook's storage directory.
type ListedDocument struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Updated   int64  `json:"updated"`
	IsDir     bool   `json:"isDir"`
	IsSymlink bool   `json:"isSymlink"`
}

// ChildBlock is a direct child of a block.
type ChildBlock struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	SubType string `json:"subType,omitempty"`
}

// ExportedDocument is a document rendered as markdown.
type ExportedDocument struct {
	HPath   string `json:"hPath"`
	Content string `json:"content"`
}

// BlockKramdown is the kramdown source of a block.
type BlockKramdown struct {
	ID       string `json:"id"`
	Kramdown string `json:"kramdown"`
}

// Transaction is what the kernel reports back for a block mutation.
type Transaction struct {
	DoOperations   []BlockOperation `json:"doOperations"`
	UndoOperations []BlockOperation `json:"undoOperations"`
}

// BlockOperation is a single step of a Transaction.
type BlockOperation struct {
	Action     string `json:"action"`
	Data       any    `json:"data"`
	ID         string `json:"id"`
	ParentID   string `json:"parentID,omitempty"`
	PreviousID string `json:"previousID,omitempty"`
	NextID     string `json:"nextID,omitempty"`
	RetData    any    `json:"retData,omitempty"`
}

// Message identifies a pushed notification.
type Message struct {
	ID string `json:"id"`
}
