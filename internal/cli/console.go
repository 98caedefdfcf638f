package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/leca/skureview/internal/api"
	"github.com/leca/skureview/internal/catalog"
	"github.com/leca/skureview/internal/export"
	"github.com/leca/skureview/internal/imageproc"
	"github.com/leca/skureview/internal/model"
	"github.com/leca/skureview/internal/review"
)

func newReviewCmd(a *app) *cobra.Command {
	var sku string
	var filter string

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Open the interactive review console",
		Long: `Opens a line-oriented console over the review session. Edits are applied
at once and saved in the background; quit waits for outstanding saves.
Type "help" inside the console for the command list.`,
		Example: `  skureview review
  skureview review --sku A100 --filter A`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identity()
			if err != nil {
				return err
			}
			c := newConsole(a, id, cmd.OutOrStdout())
			return c.run(cmd.Context(), cmd.InOrStdin(), sku, filter)
		},
	}

	cmd.Flags().StringVar(&sku, "sku", "", "SKU to open instead of the first one")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "Initial SKU filter")

	return cmd
}

// lockedWriter serializes output from background saves with the prompt.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type console struct {
	a       *app
	out     io.Writer
	cat     *catalog.Catalog
	sess    *review.Session
	exports *export.Trigger
	pending sync.WaitGroup

	// last holds, per image, a channel closed when its latest write is done.
	// Only the console goroutine touches it.
	last map[string]chan struct{}
	// previewFile is the stored thumbnail of the current preview target.
	previewFile string
}

func newConsole(a *app, identity string, out io.Writer) *console {
	cat := catalog.New(a.client, a.logger)
	return &console{
		a:   a,
		out: &lockedWriter{w: out},
		cat: cat,
		sess: review.New(identity, a.client, cat,
			review.WithLogger(a.logger),
			review.WithRollback(a.cfg.RollbackOnFailure)),
		exports: export.New(a.client, a.store, a.logger),
		last:    make(map[string]chan struct{}),
	}
}

func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *console) run(ctx context.Context, in io.Reader, sku, filter string) error {
	defer c.wait()

	c.sess.SetFilter(filter)
	if sku != "" {
		if _, err := c.cat.Load(ctx, c.sess.Identity()); err != nil {
			c.printf("Could not load SKUs: %s\n", api.UserMessage(err))
		}
		if err := c.sess.Select(ctx, sku); err != nil {
			c.printf("Could not load images: %s\n", api.UserMessage(err))
		}
	} else if err := c.sess.Start(ctx); err != nil {
		c.printf("Could not load SKUs: %s\n", api.UserMessage(err))
	}
	c.show()

	scanner := bufio.NewScanner(in)
	for {
		c.printf("> ")
		if !scanner.Scan() {
			c.printf("\n")
			return scanner.Err()
		}
		quit, err := c.exec(ctx, scanner.Text())
		if err != nil {
			c.printf("%s\n", err)
		}
		if quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// wait blocks until background saves and downloads are done.
func (c *console) wait() {
	c.pending.Wait()
	c.exports.Wait()
}

// exec runs one console line.
func (c *console) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	switch verb {
	case "quit", "exit", "q":
		if v := c.sess.View(); v.Saving > 0 {
			c.printf("Waiting for %d pending saves...\n", v.Saving)
		}
		c.wait()
		return true, nil
	case "help", "?":
		c.printf("%s", consoleHelp)
	case "show", "ls":
		c.show()
	case "select", "sku":
		if len(args) != 1 {
			return false, errors.New("usage: select <sku>")
		}
		err := c.sess.Select(ctx, args[0])
		c.show()
		return false, c.message(err)
	case "next", "n":
		err := c.sess.Next(ctx)
		if errors.Is(err, review.ErrNoNeighbour) {
			return false, errors.New("already at the last SKU")
		}
		c.show()
		return false, c.message(err)
	case "prev", "p":
		err := c.sess.Prev(ctx)
		if errors.Is(err, review.ErrNoNeighbour) {
			return false, errors.New("already at the first SKU")
		}
		c.show()
		return false, c.message(err)
	case "filter":
		c.sess.SetFilter(strings.Join(args, " "))
		c.printf("Record %d / %d\n", c.sess.Position().Record(), c.sess.Position().Total)
	case "skus":
		if !c.cat.Loaded() {
			if _, err := c.cat.Load(ctx, c.sess.Identity()); err != nil {
				return false, c.message(err)
			}
		}
		renderSKUs(c.out, c.sess.View().Filtered)
	case "approve", "reject", "pending":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: %s <image>", verb)
		}
		status, _ := model.ParseStatus(verb)
		return false, c.edit(ctx, func() (*review.Write, error) {
			return c.sess.StageStatus(args[0], status)
		})
	case "order":
		if len(args) != 2 {
			return false, errors.New("usage: order <image> <n|->")
		}
		order, err := model.ParseFlexInt(args[1])
		if err != nil {
			return false, fmt.Errorf("display order must be a whole number or -: %q", args[1])
		}
		return false, c.edit(ctx, func() (*review.Write, error) {
			return c.sess.StageOrder(args[0], order)
		})
	case "notes", "note":
		if len(args) < 1 {
			return false, errors.New("usage: notes <image> [text]")
		}
		text := strings.Join(args[1:], " ")
		return false, c.edit(ctx, func() (*review.Write, error) {
			return c.sess.StageNotes(args[0], text)
		})
	case "reset":
		err := c.sess.Reset(ctx)
		var resetErr *review.ResetError
		if errors.As(err, &resetErr) {
			c.show()
			return false, errors.New(review.ResetFailedMessage)
		}
		if err == nil {
			c.printf("All images of %s are pending again\n", c.sess.Selected())
			c.show()
		}
		return false, c.message(err)
	case "stats":
		renderStats(c.out, c.sess.Stats())
	case "preview":
		switch len(args) {
		case 0:
			return false, c.clearPreview()
		case 1:
			return false, c.preview(ctx, args[0])
		}
		return false, errors.New("usage: preview [image]")
	case "export":
		if len(args) != 1 {
			return false, errors.New("usage: export <kind>")
		}
		return false, c.export(ctx, args[0])
	case "refresh":
		err := c.sess.Refresh(ctx)
		c.show()
		return false, c.message(err)
	default:
		return false, fmt.Errorf("unknown command %q, type help", verb)
	}
	return false, nil
}

func (c *console) show() {
	renderView(c.out, c.sess.View())
}

// edit applies a change locally on the console goroutine, then sends it in
// the background. Writes to the same image are chained so that they reach
// the backend in the order they were typed; writes to different images run
// concurrently.
func (c *console) edit(ctx context.Context, stage func() (*review.Write, error)) error {
	w, err := stage()
	if err != nil {
		return c.message(err)
	}

	prev := c.last[w.Image()]
	done := make(chan struct{})
	c.last[w.Image()] = done

	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		if err := w.Commit(ctx); err != nil {
			c.printf("Saving %s of %s failed: %s\n", w.Field(), w.Image(), c.message(err))
		}
	}()
	return nil
}

func (c *console) preview(ctx context.Context, name string) error {
	p, err := c.sess.SetPreview(name)
	if err != nil {
		return c.message(err)
	}
	if p.Path == "" {
		return fmt.Errorf("%s has no uploaded image yet", name)
	}

	rc, err := c.a.client.FetchAsset(ctx, p.Path)
	if err != nil {
		return c.message(err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	thumb, format, err := imageproc.Preview(bytes.NewReader(data), imageproc.DefaultPreview)
	if err != nil {
		return fmt.Errorf("preview %s: %w", name, err)
	}
	file := "preview-" + strings.TrimSuffix(name, filepath.Ext(name)) + imageproc.Extension(format)
	if _, err := c.a.store.Store(c.sess.Identity(), file, bytes.NewReader(thumb)); err != nil {
		return err
	}

	c.previewFile = file
	c.printf("Preview of %s saved to %s\n", name, c.a.store.Path(c.sess.Identity(), file))
	if info, err := imageproc.Inspect(data); err == nil {
		img, _ := c.sess.Image(name)
		claimed := img.Resolution.String()
		if claimed == "" {
			claimed = "-"
		}
		c.printf("  actual %s %s, listed %s\n", info.Format, info.Resolution(), claimed)
	}
	return nil
}

// clearPreview drops the preview target and its stored thumbnail.
func (c *console) clearPreview() error {
	c.sess.ClearPreview()
	if c.previewFile == "" {
		return nil
	}
	file := c.previewFile
	c.previewFile = ""
	if err := c.a.store.Delete(c.sess.Identity(), file); err != nil {
		return fmt.Errorf("remove %s: %w", file, err)
	}
	c.printf("Preview cleared\n")
	return nil
}

func (c *console) export(ctx context.Context, arg string) error {
	kind, err := api.ParseExportKind(arg)
	if err != nil {
		return err
	}
	sku := ""
	if kind.NeedsSKU() {
		sku = c.sess.Selected()
		if sku == "" {
			return c.message(review.ErrNoSelection)
		}
	}
	c.printf("Downloading %s in the background\n", kind)
	c.exports.Fire(ctx, c.sess.Identity(), kind, sku, func(res export.Result) {
		if res.Err != nil {
			c.printf("Export %s failed: %s\n", kind, api.UserMessage(res.Err))
			return
		}
		c.printf("Export %s saved to %s\n", kind, res.Path)
	})
	return nil
}

// message maps session and API errors to operator text.
func (c *console) message(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, review.ErrNoSelection):
		return errors.New("select a SKU first")
	case errors.Is(err, review.ErrImageNotFound):
		return errors.New("no such image in this SKU")
	case api.IsNotFound(err):
		return fmt.Errorf("%s (try refresh)", api.UserMessage(err))
	}
	return userError(err)
}
