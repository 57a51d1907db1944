package extractor

import (
	"fmt"
	"strings"

	"github.com/AlkaloidWells/GraphWork/internal/domain"
	pkgerrors "github.com/AlkaloidWells/GraphWork/internal/pkg/errors"
)

// Normalize maps a raw profile row into a validated Interaction. Rules:
//
//   - action_type must be one of view, buy, search
//   - user_id must be present and positive
//   - views and buys require a product
//   - a category is only meaningful together with a product
//
// A failed row is reported with ErrValidation so the caller can skip and
// count it without aborting the batch.
func Normalize(row Row) (domain.Interaction, error) {
	action := domain.ActionKind(strings.ToLower(strings.TrimSpace(row.Action)))
	if !action.Valid() {
		return domain.Interaction{}, fmt.Errorf("%w: unknown action_type %q", pkgerrors.ErrValidation, row.Action)
	}

	if !row.UserID.Valid || row.UserID.Int64 <= 0 {
		return domain.Interaction{}, fmt.Errorf("%w: %s row without a user", pkgerrors.ErrValidation, action)
	}

	if action != domain.ActionSearch && !row.ProductID.Valid {
		return domain.Interaction{}, fmt.Errorf("%w: %s row for user %d without a product", pkgerrors.ErrValidation, action, row.UserID.Int64)
	}

	if row.CategoryID.Valid && !row.ProductID.Valid {
		return domain.Interaction{}, fmt.Errorf("%w: category %d without a product for user %d", pkgerrors.ErrValidation, row.CategoryID.Int64, row.UserID.Int64)
	}

	rec := domain.Interaction{
		UserID:   row.UserID.Int64,
		Action:   action,
		UserName: strings.TrimSpace(row.UserName.String),
	}
	if row.ProductID.Valid {
		if row.ProductID.Int64 <= 0 {
			return domain.Interaction{}, fmt.Errorf("%w: non-positive product_id %d", pkgerrors.ErrValidation, row.ProductID.Int64)
		}
		id := row.ProductID.Int64
		rec.ProductID = &id
		rec.ProductName = strings.TrimSpace(row.ProductName.String)
	}
	if row.CategoryID.Valid {
		if row.CategoryID.Int64 <= 0 {
			return domain.Interaction{}, fmt.Errorf("%w: non-positive category_id %d", pkgerrors.ErrValidation, row.CategoryID.Int64)
		}
		id := row.CategoryID.Int64
		rec.CategoryID = &id
		rec.CategoryName = strings.TrimSpace(row.CategoryName.String)
	}
	if row.VendorID.Valid {
		if row.VendorID.Int64 <= 0 {
			return domain.Interaction{}, fmt.Errorf("%w: non-positive vendor_id %d", pkgerrors.ErrValidation, row.VendorID.Int64)
		}
		id := row.VendorID.Int64
		rec.VendorID = &id
		rec.VendorName = strings.TrimSpace(row.VendorName.String)
	}
	if row.OccurredAt.Valid {
		t := row.OccurredAt.Time.UTC()
		rec.OccurredAt = &t
	}
	return rec, nil
}
