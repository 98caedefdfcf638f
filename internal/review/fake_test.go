package review

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/leca/skureview/internal/catalog"
	"github.com/leca/skureview/internal/model"
)

const operator = "op@example.com"

// updateCall is one gated UpdateImage call. The test answers it on done.
type updateCall struct {
	upd  model.ImageUpdate
	done chan error
}

// fakeGateway is an in-memory backend with hooks for ordering responses.
type fakeGateway struct {
	mu       sync.Mutex
	order    []string
	images   map[string][]model.Image
	holds    map[string]chan struct{}
	listErr  error
	skuErr   error
	resetErr error
	echo     bool
	// resetGate, when set, blocks ResetSKU until it is closed.
	resetGate chan struct{}

	// updateErr fails every ungated update.
	updateErr error
	// gated routes every update through started, blocking it until the test
	// answers on the call's done channel.
	gated   bool
	started chan updateCall

	listStarted chan string
	listCalls   []string
	skuCalls    int
	updates     []model.ImageUpdate
	resets      []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		images:      make(map[string][]model.Image),
		holds:       make(map[string]chan struct{}),
		started:     make(chan updateCall, 16),
		listStarted: make(chan string, 64),
	}
}

// add appends images to sku, creating the sku if needed.
func (g *fakeGateway) add(sku string, images ...model.Image) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.images[sku]; !ok {
		g.order = append(g.order, sku)
	}
	for _, img := range images {
		img.SKUID = model.FlexString(sku)
		if img.Status == "" {
			img.Status = model.StatusPending
		}
		g.images[sku] = append(g.images[sku], img)
	}
}

// hold makes ListImages for sku block until the returned func is called.
func (g *fakeGateway) hold(sku string) func() {
	ch := make(chan struct{})
	g.mu.Lock()
	g.holds[sku] = ch
	g.mu.Unlock()
	return func() { close(ch) }
}

func (g *fakeGateway) set(fn func(g *fakeGateway)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(g)
}

func (g *fakeGateway) stored(sku, name string) model.Image {
	g.mu.Lock()
	defer g.mu.Unlock()
	list := g.images[sku]
	if i := model.FindImage(list, name); i >= 0 {
		return list[i]
	}
	return model.Image{}
}

func (g *fakeGateway) counts() (skuCalls int, listCalls int, updates []model.ImageUpdate) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.skuCalls, len(g.listCalls), append([]model.ImageUpdate(nil), g.updates...)
}

func (g *fakeGateway) ListSKUs(ctx context.Context, email string) ([]model.SKU, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.skuCalls++
	if g.skuErr != nil {
		return nil, g.skuErr
	}
	out := make([]model.SKU, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, skuCounts(id, g.images[id]))
	}
	return out, nil
}

func skuCounts(id string, images []model.Image) model.SKU {
	st := model.ComputeStats(images)
	return model.SKU{SKUID: model.FlexString(id), Total: st.Total(), Approved: st.Approved, Rejected: st.Rejected, Pending: st.Pending}
}

func (g *fakeGateway) ListImages(ctx context.Context, email, skuID string) ([]model.Image, error) {
	g.mu.Lock()
	g.listCalls = append(g.listCalls, skuID)
	hold := g.holds[skuID]
	delete(g.holds, skuID)
	g.mu.Unlock()

	g.listStarted <- skuID
	if hold != nil {
		<-hold
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	return append([]model.Image(nil), g.images[skuID]...), nil
}

func (g *fakeGateway) UpdateImage(ctx context.Context, email string, upd model.ImageUpdate) (*model.Image, error) {
	g.mu.Lock()
	g.updates = append(g.updates, upd)
	gated, err := g.gated, g.updateErr
	g.mu.Unlock()

	if gated {
		call := updateCall{upd: upd, done: make(chan error, 1)}
		g.started <- call
		err = <-call.done
	}
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, sku := range g.order {
		list := g.images[sku]
		if i := model.FindImage(list, upd.ImageName); i >= 0 {
			list[i].Status = upd.Status
			list[i].DisplayOrder = upd.DisplayOrder
			if upd.Status == model.StatusRejected || upd.Status == model.StatusPending {
				list[i].DisplayOrder = model.FlexInt{}
			}
			list[i].Notes = model.FlexString(upd.Notes)
			if g.echo {
				rec := list[i]
				return &rec, nil
			}
			return nil, nil
		}
	}
	return nil, nil
}

func (g *fakeGateway) ResetSKU(ctx context.Context, email, skuID string) error {
	g.mu.Lock()
	gate := g.resetGate
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.resets = append(g.resets, skuID)
	if g.resetErr != nil {
		return g.resetErr
	}
	for i := range g.images[skuID] {
		g.images[skuID][i].Status = model.StatusPending
		g.images[skuID][i].DisplayOrder = model.FlexInt{}
	}
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// newTestSession wires a session to gw through a real catalog.
func newTestSession(gw *fakeGateway, opts ...Option) (*Session, *catalog.Catalog) {
	cat := catalog.New(gw, discard())
	opts = append([]Option{WithLogger(discard())}, opts...)
	return New(operator, gw, cat, opts...), cat
}

func names(images []model.Image) []string {
	out := make([]string, len(images))
	for i, img := range images {
		out[i] = img.ImageName
	}
	return out
}
