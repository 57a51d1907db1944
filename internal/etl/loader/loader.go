package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/AlkaloidWells/GraphWork/internal/domain"
	pkgerrors "github.com/AlkaloidWells/GraphWork/internal/pkg/errors"
	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
)

// Node labels and their natural key properties. The loader never invents
// surrogate identifiers: a node is its (label, key) pair.
const (
	LabelUser     = "User"
	LabelProduct  = "Product"
	LabelCategory = "Category"
	LabelVendor   = "Vendor"

	KeyUser     = "user_id"
	KeyProduct  = "product_id"
	KeyCategory = "category_id"
	KeyVendor   = "vendor_id"
)

// Relationship types written by the loader.
const (
	RelBelongsTo      = "BELONGS_TO"
	RelOwns           = "OWNS"
	RelInteractedWith = "INTERACTED_WITH"
)

// NodeRef addresses a node by label and natural key.
type NodeRef struct {
	Label   string
	KeyProp string
	Key     int64
}

func UserRef(id int64) NodeRef     { return NodeRef{LabelUser, KeyUser, id} }
func ProductRef(id int64) NodeRef  { return NodeRef{LabelProduct, KeyProduct, id} }
func CategoryRef(id int64) NodeRef { return NodeRef{LabelCategory, KeyCategory, id} }
func VendorRef(id int64) NodeRef   { return NodeRef{LabelVendor, KeyVendor, id} }

// GraphWriter is the write surface the loader needs from the graph store.
//
// UpsertNode must be an atomic merge-or-create on (label, key) at the store
// level: props holds only known attribute values, so existing attributes are
// never overwritten by absent ones. CreateEdge appends a new edge every
// call; MergeEdge is idempotent on (from, type, to) and is used for the
// static catalog relationships.
type GraphWriter interface {
	UpsertNode(ctx context.Context, ref NodeRef, props map[string]any) error
	CreateEdge(ctx context.Context, from NodeRef, relType string, to NodeRef, props map[string]any) error
	MergeEdge(ctx context.Context, from NodeRef, relType string, to NodeRef) error
}

type Service struct {
	w       GraphWriter
	log     *logger.Logger
	timeout time.Duration
}

func NewService(w GraphWriter, baseLog *logger.Logger, timeout time.Duration) *Service {
	return &Service{
		w:       w,
		log:     baseLog.With("service", "GraphLoader"),
		timeout: timeout,
	}
}

// Load projects one interaction into the graph:
//
//  1. upsert the user
//  2. upsert product and category, merge BELONGS_TO when both are known
//  3. upsert vendor, merge OWNS when a product is present
//  4. append the primary interaction edge (user→product, or user→vendor for
//     searches with no resolved product)
//  5. merge the coarse INTERACTED_WITH edge to the vendor
//
// Node upserts are idempotent; interaction edges are an append-only log, so
// re-ingesting the same rows grows edge counts but never node counts.
func (s *Service) Load(ctx context.Context, rec domain.Interaction) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := s.load(ctx, rec)
	if err == nil {
		return nil
	}
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: user %d %s: %v", pkgerrors.ErrTimeout, rec.UserID, rec.Action, err)
	}
	return fmt.Errorf("%w: user %d %s: %v", pkgerrors.ErrLoad, rec.UserID, rec.Action, err)
}

func (s *Service) load(ctx context.Context, rec domain.Interaction) error {
	user := UserRef(rec.UserID)
	if err := s.w.UpsertNode(ctx, user, nameProps("name", rec.UserName)); err != nil {
		return err
	}

	var product, vendor *NodeRef
	if rec.ProductID != nil {
		ref := ProductRef(*rec.ProductID)
		product = &ref
		if err := s.w.UpsertNode(ctx, ref, nameProps("name", rec.ProductName)); err != nil {
			return err
		}
		if rec.CategoryID != nil {
			category := CategoryRef(*rec.CategoryID)
			if err := s.w.UpsertNode(ctx, category, nameProps("name", rec.CategoryName)); err != nil {
				return err
			}
			if err := s.w.MergeEdge(ctx, ref, RelBelongsTo, category); err != nil {
				return err
			}
		}
	}

	if rec.VendorID != nil {
		ref := VendorRef(*rec.VendorID)
		vendor = &ref
		if err := s.w.UpsertNode(ctx, ref, nameProps("name", rec.VendorName)); err != nil {
			return err
		}
		if product != nil {
			if err := s.w.MergeEdge(ctx, ref, RelOwns, *product); err != nil {
				return err
			}
		}
	}

	props := map[string]any{}
	if rec.OccurredAt != nil {
		props["occurred_at"] = rec.OccurredAt.UTC().Format(time.RFC3339Nano)
	}

	switch {
	case product != nil:
		if err := s.w.CreateEdge(ctx, user, rec.Action.RelType(), *product, props); err != nil {
			return err
		}
	case rec.Action == domain.ActionSearch && vendor != nil:
		if err := s.w.CreateEdge(ctx, user, rec.Action.RelType(), *vendor, props); err != nil {
			return err
		}
	default:
		// A search that resolved to neither product nor vendor still
		// upserts the user; there is nothing to attach the edge to.
		s.log.Debug("interaction without edge target", "user_id", rec.UserID, "action", rec.Action)
	}

	if vendor != nil {
		if err := s.w.MergeEdge(ctx, user, RelInteractedWith, *vendor); err != nil {
			return err
		}
	}
	return nil
}

func nameProps(key, val string) map[string]any {
	if val == "" {
		return map[string]any{}
	}
	return map[string]any{key: val}
}
