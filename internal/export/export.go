// Package export fires report downloads and saves them to local storage.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/leca/skureview/internal/api"
	"github.com/leca/skureview/internal/storage"
)

// Exporter opens export streams.
type Exporter interface {
	Export(ctx context.Context, kind api.ExportKind, email, skuID string) (*api.Download, error)
	ExportURL(kind api.ExportKind, email, skuID string) (string, error)
}

// Result describes a finished download.
type Result struct {
	Kind  api.ExportKind
	SKU   string
	Path  string
	Bytes int64
	// Replaced is set when an earlier download of the same file was
	// overwritten.
	Replaced bool
	Err      error
}

// Trigger downloads exports. It keeps no state about past downloads beyond
// the in-flight count needed by Wait.
type Trigger struct {
	exporter Exporter
	store    storage.Storage
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// New creates a Trigger that saves into store.
func New(exporter Exporter, store storage.Storage, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trigger{exporter: exporter, store: store, logger: logger}
}

// URL returns the direct download address for kind.
func (t *Trigger) URL(identity string, kind api.ExportKind, skuID string) (string, error) {
	return t.exporter.ExportURL(kind, identity, skuID)
}

// Download fetches one export and stores it under the server's filename.
// It returns the local path.
func (t *Trigger) Download(ctx context.Context, identity string, kind api.ExportKind, skuID string) (Result, error) {
	res := Result{Kind: kind, SKU: skuID}

	dl, err := t.exporter.Export(ctx, kind, identity, skuID)
	if err != nil {
		res.Err = err
		return res, err
	}
	defer dl.Body.Close()

	res.Replaced, err = t.store.Exists(identity, dl.Filename)
	if err != nil {
		res.Err = err
		return res, err
	}
	n, err := t.store.Store(identity, dl.Filename, dl.Body)
	if err != nil {
		res.Err = fmt.Errorf("save %s: %w", dl.Filename, err)
		return res, res.Err
	}
	res.Path = t.store.Path(identity, dl.Filename)
	res.Bytes = n
	t.logger.Info("Export saved", "kind", string(kind), "sku_id", skuID, "path", res.Path, "bytes", n, "replaced", res.Replaced)
	return res, nil
}

// Fire starts a download in the background and returns at once. done, if
// not nil, receives the result. Failures are logged either way.
func (t *Trigger) Fire(ctx context.Context, identity string, kind api.ExportKind, skuID string, done func(Result)) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		res, err := t.Download(ctx, identity, kind, skuID)
		if err != nil {
			t.logger.Error("Export failed", "kind", string(kind), "sku_id", skuID, "err", err)
		}
		if done != nil {
			done(res)
		}
	}()
}

// Wait blocks until every fired download has finished.
func (t *Trigger) Wait() { t.wg.Wait() }

// Copy streams an export to w instead of storage, e.g. for piping.
func (t *Trigger) Copy(ctx context.Context, w io.Writer, identity string, kind api.ExportKind, skuID string) (string, int64, error) {
	dl, err := t.exporter.Export(ctx, kind, identity, skuID)
	if err != nil {
		return "", 0, err
	}
	defer dl.Body.Close()
	n, err := io.Copy(w, dl.Body)
	if err != nil {
		return dl.Filename, n, fmt.Errorf("copy %s: %w", dl.Filename, err)
	}
	return dl.Filename, n, nil
}
