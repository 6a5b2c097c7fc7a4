// Package importer mirrors a local markdown vault into a SiYuan notebook and
// exports a notebook back into the vault.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/starford/siyuanflow/internal/journal"
	"github.com/starford/siyuanflow/internal/parser"
	"github.com/starford/siyuanflow/internal/siyuan"
	"github.com/starford/siyuanflow/internal/storage"
)

// Report summarises one sync pass. Each list holds vault-relative paths.
type Report struct {
	Created []string `json:"created"`
	Updated []string `json:"updated"`
	Removed []string `json:"removed"`
	Skipped []string `json:"skipped"`
}

// Changed reports whether the pass touched the notebook.
func (r *Report) Changed() bool {
	return len(r.Created)+len(r.Updated)+len(r.Removed) > 0
}

// Importer syncs vault files into one notebook.
type Importer struct {
	client   *siyuan.Client
	store    storage.Provider
	journal  *journal.DB
	notebook string
	prune    bool
	onReport func(*Report)
	logger   *slog.Logger

	// mu serializes sync passes; overlapping passes would read the same
	// journal state and create a document twice.
	mu sync.Mutex
}

// Option configures an Importer.
type Option func(*Importer)

// WithPrune removes documents whose vault file is gone.
func WithPrune(on bool) Option {
	return func(im *Importer) {
		im.prune = on
	}
}

// WithReportHook calls fn with the report of every sync pass, whoever
// started it.
func WithReportHook(fn func(*Report)) Option {
	return func(im *Importer) {
		im.onReport = fn
	}
}

// WithLogger sets the importer logger.
func WithLogger(l *slog.Logger) Option {
	return func(im *Importer) {
		if l != nil {
			im.logger = l
		}
	}
}

// New returns an importer for notebook. The journal may be nil when only
// Export is used.
func New(client *siyuan.Client, store storage.Provider, j *journal.DB, notebook string, opts ...Option) (*Importer, error) {
	if client == nil || store == nil {
		return nil, errors.New("importer: client and store are required")
	}
	if notebook == "" {
		return nil, errors.New("importer: notebook is required")
	}
	im := &Importer{
		client:   client,
		store:    store,
		journal:  j,
		notebook: notebook,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im, nil
}

// Sync walks the vault and brings the notebook up to date:
//   - new files are created as documents
//   - changed files replace the content of their document
//   - files removed from disk delete their document when pruning is on
//
// A failing file does not stop the pass. All failures are returned together.
// Concurrent calls run one after another.
func (im *Importer) Sync(ctx context.Context) (*Report, error) {
	if im.journal == nil {
		return nil, errors.New("importer: sync needs a journal")
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	report, err := im.sync(ctx)
	if report != nil && im.onReport != nil {
		im.onReport(report)
	}
	return report, err
}

func (im *Importer) sync(ctx context.Context) (*Report, error) {
	metas, err := im.store.List("")
	if err != nil {
		return nil, err
	}
	records, err := im.journal.AllImports(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	var result error

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return report, multierror.Append(result, err).ErrorOrNil()
		}
		disk[m.Path] = struct{}{}

		rec, known := records[m.Path]
		if known && rec.Checksum == m.Checksum {
			report.Skipped = append(report.Skipped, m.Path)
			continue
		}

		var prev *journal.ImportRecord
		if known {
			prev = &rec
		}
		if err := im.importFile(ctx, m.Path, m.Checksum, prev); err != nil {
			im.logger.Warn("import: file failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			result = multierror.Append(result, fmt.Errorf("%s: %w", m.Path, err))
			continue
		}
		if known {
			report.Updated = append(report.Updated, m.Path)
		} else {
			report.Created = append(report.Created, m.Path)
		}
	}

	if im.prune {
		gone := make([]string, 0, len(records))
		for p := range records {
			if _, ok := disk[p]; !ok {
				gone = append(gone, p)
			}
		}
		sort.Strings(gone)
		for _, p := range gone {
			rec := records[p]
			if err := im.remove(ctx, rec); err != nil {
				im.logger.Warn("import: prune failed", slog.String("path", p), slog.String("error", err.Error()))
				result = multierror.Append(result, fmt.Errorf("%s: %w", p, err))
				continue
			}
			report.Removed = append(report.Removed, p)
		}
	}

	im.logger.Info("import: sync finished",
		slog.String("notebook", im.notebook),
		slog.Int("created", len(report.Created)),
		slog.Int("updated", len(report.Updated)),
		slog.Int("removed", len(report.Removed)),
		slog.Int("skipped", len(report.Skipped)))

	return report, result
}

// importFile creates or refreshes the document for one vault file.
func (im *Importer) importFile(ctx context.Context, path, checksum string, prev *journal.ImportRecord) error {
	data, err := im.store.Read(path)
	if err != nil {
		return err
	}
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}

	var docID string
	if prev == nil {
		docID, err = im.client.CreateDocWithMd(ctx, im.notebook, HPath(path), res.Body)
		if err != nil {
			return err
		}
		im.logger.Debug("import: created", slog.String("path", path), slog.String("id", docID))
	} else {
		docID = prev.DocID
		if _, err := im.client.UpdateBlock(ctx, docID, res.Body, siyuan.DataTypeMarkdown); err != nil {
			return err
		}
		im.logger.Debug("import: updated", slog.String("path", path), slog.String("id", docID))
	}

	// A failed attribute call leaves the checksum empty so the next pass
	// updates the same document again.
	var attrErr error
	if attrs := res.Attrs(); len(attrs) > 0 {
		attrErr = im.client.SetBlockAttrs(ctx, docID, attrs)
	}
	if attrErr != nil {
		checksum = ""
	}
	if err := im.journal.UpsertImport(ctx, journal.ImportRecord{Path: path, DocID: docID, Checksum: checksum}); err != nil {
		return err
	}
	return attrErr
}

func (im *Importer) remove(ctx context.Context, rec journal.ImportRecord) error {
	if err := im.client.RemoveDocByID(ctx, rec.DocID); err != nil {
		return err
	}
	im.logger.Debug("import: removed", slog.String("path", rec.Path), slog.String("id", rec.DocID))
	return im.journal.DeleteImport(ctx, rec.Path)
}

// HPath maps a vault-relative file path to the document path it is created
// under: "Inbox/todo.md" becomes "/Inbox/todo".
func HPath(path string) string {
	return "/" + strings.TrimSuffix(strings.TrimPrefix(path, "/"), storage.MarkdownExt)
}
