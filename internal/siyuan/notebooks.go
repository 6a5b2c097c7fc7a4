package siyuan

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DocExt is the file extension of document storage files.
const DocExt = ".sy"

// titleLookupLimit bounds the attribute lookups ListDocsInNotebook keeps in
// flight at once.
const titleLookupLimit = 8

// ListNotebooks returns every notebook of the workspace.
func (c *Client) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	out, err := call[struct {
		Notebooks []Notebook `json:"notebooks"`
	}](ctx, c, "/api/notebook/lsNotebooks", nil)
	if err != nil {
		return nil, err
	}
	return out.Notebooks, nil
}

// CreateNotebook creates an empty notebook.
func (c *Client) CreateNotebook(ctx context.Context, name string) (Notebook, error) {
	out, err := call[struct {
		Notebook Notebook `json:"notebook"`
	}](ctx, c, "/api/notebook/createNotebook", Payload{"name": name})
	if err != nil {
		return Notebook{}, err
	}
	return out.Notebook, nil
}

// RenameNotebook renames a notebook.
func (c *Client) RenameNotebook(ctx context.Context, id, name string) error {
	return exec(ctx, c, "/api/notebook/renameNotebook", Payload{"notebook": id, "name": name})
}

// RemoveNotebook deletes a notebook and everything in it.
func (c *Client) RemoveNotebook(ctx context.Context, id string) error {
	return exec(ctx, c, "/api/notebook/removeNotebook", Payload{"notebook": id})
}

// OpenNotebook opens a closed notebook.
func (c *Client) OpenNotebook(ctx context.Context, id string) error {
	return exec(ctx, c, "/api/notebook/openNotebook", Payload{"notebook": id})
}

// CloseNotebook closes a notebook.
func (c *Client) CloseNotebook(ctx context.Context, id string) error {
	return exec(ctx, c, "/api/notebook/closeNotebook", Payload{"notebook": id})
}

// ReadDir lists a directory relative to the workspace root.
func (c *Client) ReadDir(ctx context.Context, dir string) ([]DirEntry, error) {
	return call[[]DirEntry](ctx, c, "/api/file/readDir", Payload{"path": dir})
}

// ListDocsInNotebook lists the documents stored directly in a notebook.
//
// Titles come from each document's attributes. A failed or empty lookup
// falls back to the document id and never drops the document or fails the
// listing. Only the directory listing itself can fail.
func (c *Client) ListDocsInNotebook(ctx context.Context, notebook string) ([]ListedDocument, error) {
	entries, err := c.ReadDir(ctx, path.Join("/data", notebook))
	if err != nil {
		return nil, err
	}

	var docs []ListedDocument
	for _, e := range entries {
		if e.IsDir || !strings.HasSuffix(e.Name, DocExt) {
			continue
		}
		id := strings.TrimSuffix(e.Name, DocExt)
		docs = append(docs, ListedDocument{
			ID:        id,
			Name:      e.Name,
			Title:     id,
			Updated:   e.Updated,
			IsSymlink: e.IsSymlink,
		})
	}

	var g errgroup.Group
	g.SetLimit(titleLookupLimit)
	for i := range docs {
		doc := &docs[i]
		g.Go(func() error {
			attrs, err := c.GetBlockAttrs(ctx, doc.ID)
			if err != nil {
				c.logger.Debug("siyuan: title lookup failed, using id",
					slog.String("id", doc.ID),
					slog.String("error", err.Error()))
				return nil
			}
			if t := attrs["title"]; t != "" {
				doc.Title = t
			}
			return nil
		})
	}
	_ = g.Wait()

	if docs == nil {
		docs = []ListedDocument{}
	}
	return docs, nil
}
