package importer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Export writes every document of the notebook's top level into the vault as
// <hpath>.md and returns the written paths. A document that cannot be
// exported is reported and skipped.
func (im *Importer) Export(ctx context.Context) ([]string, error) {
	docs, err := im.client.ListDocsInNotebook(ctx, im.notebook)
	if err != nil {
		return nil, err
	}

	var (
		written []string
		result  error
	)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return written, multierror.Append(result, err)
		}
		out, err := im.client.ExportMdContent(ctx, doc.ID)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		name := exportPath(out.HPath, doc.Title)
		if err := im.store.Write(name, []byte(out.Content)); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		im.logger.Debug("export: wrote", slog.String("id", doc.ID), slog.String("path", name))
		written = append(written, name)
	}

	im.logger.Info("export: finished",
		slog.String("notebook", im.notebook),
		slog.Int("written", len(written)))
	return written, result
}

// exportPath turns a document path into a vault file name. The title is used
// when the kernel reports no path.
func exportPath(hpath, title string) string {
	p := strings.Trim(hpath, "/")
	if p == "" {
		p = title
	}
	return p + ".md"
}
