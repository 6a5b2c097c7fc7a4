package siyuan

import "context"

// CreateDocWithMd creates a document at the human-readable path inside
// notebook and returns its id.
func (c *Client) CreateDocWithMd(ctx context.Context, notebook, path, markdown string) (string, error) {
	return call[string](ctx, c, "/api/filetree/createDocWithMd", Payload{
		"notebook": notebook,
		"path":     path,
		"markdown": markdown,
	})
}

// RenameDocByID sets a document's title.
func (c *Client) RenameDocByID(ctx context.Context, id, title string) error {
	return exec(ctx, c, "/api/filetree/renameDocByID", Payload{"id": id, "title": title})
}

// RemoveDocByID deletes a document.
func (c *Client) RemoveDocByID(ctx context.Context, id string) error {
	return exec(ctx, c, "/api/filetree/removeDocByID", Payload{"id": id})
}

// MoveDocsByID moves documents under toID (a notebook or a document) in a
// single request.
func (c *Client) MoveDocsByID(ctx context.Context, fromIDs []string, toID string) error {
	ids := make([]string, len(fromIDs))
	copy(ids, fromIDs)
	return exec(ctx, c, "/api/filetree/moveDocsByID", Payload{"fromIDs": ids, "toID": toID})
}

// GetIDsByHPath resolves a human-readable path to document ids.
func (c *Client) GetIDsByHPath(ctx context.Context, path, notebook string) ([]string, error) {
	return call[[]string](ctx, c, "/api/filetree/getIDsByHPath", Payload{
		"path":     path,
		"notebook": notebook,
	})
}

// GetHPathByID returns the human-readable path of a document.
func (c *Client) GetHPathByID(ctx context.Context, id string) (string, error) {
	return call[string](ctx, c, "/api/filetree/getHPathByID", Payload{"id": id})
}

// ExportMdContent renders a document as markdown.
func (c *Client) ExportMdContent(ctx context.Context, id string) (ExportedDocument, error) {
	return call[ExportedDocument](ctx, c, "/api/export/exportMdContent", Payload{"id": id})
}
