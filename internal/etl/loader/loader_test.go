package loader

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/AlkaloidWells/GraphWork/internal/domain"
	pkgerrors "github.com/AlkaloidWells/GraphWork/internal/pkg/errors"
	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
)

// memWriter models the store's merge semantics in memory: nodes and merged
// edges are keyed sets, created edges are an append-only list.
type memWriter struct {
	nodes   map[string]map[string]any
	created []string
	merged  map[string]bool
	failOn  string
	err     error
}

func newMemWriter() *memWriter {
	return &memWriter{
		nodes:  map[string]map[string]any{},
		merged: map[string]bool{},
	}
}

func nodeKey(ref NodeRef) string { return fmt.Sprintf("%s:%d", ref.Label, ref.Key) }

func edgeKey(from NodeRef, relType string, to NodeRef) string {
	return fmt.Sprintf("%s-%s->%s", nodeKey(from), relType, nodeKey(to))
}

func (w *memWriter) UpsertNode(_ context.Context, ref NodeRef, props map[string]any) error {
	key := nodeKey(ref)
	if w.failOn == key {
		return w.err
	}
	existing, ok := w.nodes[key]
	if !ok {
		existing = map[string]any{}
		w.nodes[key] = existing
	}
	for k, v := range props {
		existing[k] = v
	}
	return nil
}

func (w *memWriter) CreateEdge(_ context.Context, from NodeRef, relType string, to NodeRef, _ map[string]any) error {
	key := edgeKey(from, relType, to)
	if w.failOn == key {
		return w.err
	}
	w.created = append(w.created, key)
	return nil
}

func (w *memWriter) MergeEdge(_ context.Context, from NodeRef, relType string, to NodeRef) error {
	key := edgeKey(from, relType, to)
	if w.failOn == key {
		return w.err
	}
	w.merged[key] = true
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func ptr(v int64) *int64 { return &v }

func TestLoadScenario(t *testing.T) {
	w := newMemWriter()
	svc := NewService(w, testLogger(t), 0)
	ctx := context.Background()

	records := []domain.Interaction{
		{UserID: 1, ProductID: ptr(10), CategoryID: ptr(5), Action: domain.ActionView},
		{UserID: 2, ProductID: ptr(10), CategoryID: ptr(5), Action: domain.ActionBuy},
	}
	for _, rec := range records {
		if err := svc.Load(ctx, rec); err != nil {
			t.Fatalf("Load: %v", err)
		}
	}

	for _, key := range []string{"User:1", "User:2", "Product:10", "Category:5"} {
		if _, ok := w.nodes[key]; !ok {
			t.Fatalf("missing node %s, have %v", key, w.nodes)
		}
	}
	if len(w.nodes) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(w.nodes))
	}

	wantCreated := []string{
		"User:1-VIEWED->Product:10",
		"User:2-BOUGHT->Product:10",
	}
	if len(w.created) != len(wantCreated) {
		t.Fatalf("expected %d interaction edges, got %v", len(wantCreated), w.created)
	}
	for i, want := range wantCreated {
		if w.created[i] != want {
			t.Fatalf("edge %d: want %s, got %s", i, want, w.created[i])
		}
	}
	if !w.merged["Product:10-BELONGS_TO->Category:5"] {
		t.Fatalf("missing BELONGS_TO edge, have %v", w.merged)
	}
}

func TestLoadIdempotentNodes(t *testing.T) {
	w := newMemWriter()
	svc := NewService(w, testLogger(t), 0)
	ctx := context.Background()

	records := []domain.Interaction{
		{UserID: 1, ProductID: ptr(10), CategoryID: ptr(5), VendorID: ptr(268), Action: domain.ActionView},
		{UserID: 2, ProductID: ptr(10), CategoryID: ptr(5), VendorID: ptr(268), Action: domain.ActionBuy},
		{UserID: 1, Action: domain.ActionSearch, VendorID: ptr(268)},
	}
	run := func() {
		for _, rec := range records {
			if err := svc.Load(ctx, rec); err != nil {
				t.Fatalf("Load: %v", err)
			}
		}
	}

	run()
	nodesAfterFirst := len(w.nodes)
	mergedAfterFirst := len(w.merged)

	run()
	if len(w.nodes) != nodesAfterFirst {
		t.Fatalf("node count changed on re-ingestion: %d -> %d", nodesAfterFirst, len(w.nodes))
	}
	if len(w.merged) != mergedAfterFirst {
		t.Fatalf("merged edge count changed on re-ingestion: %d -> %d", mergedAfterFirst, len(w.merged))
	}
	// Interaction edges are an append-only log.
	if len(w.created) != 2*len(records) {
		t.Fatalf("expected %d interaction edges after two runs, got %d", 2*len(records), len(w.created))
	}
}

func TestLoadMergesNewAttributes(t *testing.T) {
	w := newMemWriter()
	svc := NewService(w, testLogger(t), 0)
	ctx := context.Background()

	if err := svc.Load(ctx, domain.Interaction{UserID: 1, ProductID: ptr(10), Action: domain.ActionView, UserName: "Ada"}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	// A later record without a name must not erase the known one.
	if err := svc.Load(ctx, domain.Interaction{UserID: 1, ProductID: ptr(10), Action: domain.ActionBuy}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := w.nodes["User:1"]["name"]; got != "Ada" {
		t.Fatalf("expected name to survive merge, got %v", got)
	}
}

func TestLoadSearchWithoutProduct(t *testing.T) {
	w := newMemWriter()
	svc := NewService(w, testLogger(t), 0)
	ctx := context.Background()

	if err := svc.Load(ctx, domain.Interaction{UserID: 3, VendorID: ptr(268), Action: domain.ActionSearch}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	for _, key := range w.created {
		if key != "User:3-SEARCHED->Vendor:268" {
			t.Fatalf("unexpected created edge %s", key)
		}
	}
	if len(w.created) != 1 {
		t.Fatalf("expected exactly the SEARCHED edge, got %v", w.created)
	}
	for key := range w.merged {
		if key != "User:3-INTERACTED_WITH->Vendor:268" {
			t.Fatalf("unexpected merged edge %s: search without product must not create BELONGS_TO or OWNS", key)
		}
	}
	if _, ok := w.nodes["Product:0"]; ok {
		t.Fatalf("search without product must not create a product node")
	}
}

func TestLoadSearchWithoutAnyTarget(t *testing.T) {
	w := newMemWriter()
	svc := NewService(w, testLogger(t), 0)

	if err := svc.Load(context.Background(), domain.Interaction{UserID: 4, Action: domain.ActionSearch}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(w.created) != 0 || len(w.merged) != 0 {
		t.Fatalf("expected no edges, got created=%v merged=%v", w.created, w.merged)
	}
	if _, ok := w.nodes["User:4"]; !ok {
		t.Fatalf("user node must still be upserted")
	}
}

func TestLoadVendorOwnership(t *testing.T) {
	w := newMemWriter()
	svc := NewService(w, testLogger(t), 0)

	err := svc.Load(context.Background(), domain.Interaction{
		UserID:    1,
		ProductID: ptr(10),
		VendorID:  ptr(268),
		Action:    domain.ActionBuy,
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !w.merged["Vendor:268-OWNS->Product:10"] {
		t.Fatalf("missing OWNS edge, have %v", w.merged)
	}
	if !w.merged["User:1-INTERACTED_WITH->Vendor:268"] {
		t.Fatalf("missing INTERACTED_WITH edge, have %v", w.merged)
	}
}

func TestLoadWrapsWriteFailures(t *testing.T) {
	w := newMemWriter()
	w.failOn = "Product:10"
	w.err = errors.New("constraint violation")
	svc := NewService(w, testLogger(t), 0)

	err := svc.Load(context.Background(), domain.Interaction{UserID: 1, ProductID: ptr(10), Action: domain.ActionView})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, pkgerrors.ErrLoad) {
		t.Fatalf("expected ErrLoad, got %v", err)
	}
}

func TestLoadTimeout(t *testing.T) {
	w := newMemWriter()
	w.failOn = "User:1"
	w.err = context.DeadlineExceeded
	svc := NewService(w, testLogger(t), 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := svc.Load(ctx, domain.Interaction{UserID: 1, Action: domain.ActionSearch})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !pkgerrors.IsTimeout(err) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
}
