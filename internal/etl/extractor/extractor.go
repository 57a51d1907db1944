package extractor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/AlkaloidWells/GraphWork/internal/domain"
	pkgerrors "github.com/AlkaloidWells/GraphWork/internal/pkg/errors"
	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
)

// Profile names one of the analytical queries against the behavioral
// source. Each profile has a fixed column set; extraction is all-or-nothing
// per profile.
type Profile string

const (
	ProfileViews    Profile = "views"
	ProfileBuys     Profile = "buys"
	ProfileSearches Profile = "searches"
	ProfileCombined Profile = "combined"
)

// Row is one raw interaction row as produced by a profile query. Nullable
// columns stay nullable here; the normalizer decides what is acceptable for
// which action kind.
type Row struct {
	UserID       sql.NullInt64  `gorm:"column:user_id"`
	UserName     sql.NullString `gorm:"column:user_name"`
	ProductID    sql.NullInt64  `gorm:"column:product_id"`
	ProductName  sql.NullString `gorm:"column:product_name"`
	CategoryID   sql.NullInt64  `gorm:"column:category_id"`
	CategoryName sql.NullString `gorm:"column:category_name"`
	VendorID     sql.NullInt64  `gorm:"column:vendor_id"`
	VendorName   sql.NullString `gorm:"column:vendor_name"`
	Action       string         `gorm:"column:action_type"`
	OccurredAt   sql.NullTime   `gorm:"column:occurred_at"`
}

type Service struct {
	db      *gorm.DB
	log     *logger.Logger
	timeout time.Duration
}

func NewService(db *gorm.DB, baseLog *logger.Logger, timeout time.Duration) *Service {
	return &Service{
		db:      db,
		log:     baseLog.With("service", "Extractor"),
		timeout: timeout,
	}
}

// catalogJoin resolves each product to its category and vendor along with
// display names. Vendors are shop accounts: vendors.user_id is the vendor's
// natural key.
const catalogJoin = `
	SELECT
		p.id AS product_id,
		p.name AS product_name,
		p.category_id AS category_id,
		c.name AS category_name,
		v.user_id AS vendor_id,
		v.name AS vendor_name
	FROM products p
	JOIN vendors v ON p.user_id = v.user_id
	JOIN categories c ON p.category_id = c.id`

// Extract runs the named profile restricted to the given scope and returns
// the full result set. Failures wrap ErrExtraction; partial results are
// never returned.
func (s *Service) Extract(ctx context.Context, profile Profile, scope domain.Scope) ([]Row, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrExtraction, err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var profiles []Profile
	switch profile {
	case ProfileViews, ProfileBuys, ProfileSearches:
		profiles = []Profile{profile}
	case ProfileCombined:
		profiles = []Profile{ProfileViews, ProfileBuys, ProfileSearches}
	default:
		return nil, fmt.Errorf("%w: unknown profile %q", pkgerrors.ErrExtraction, profile)
	}

	var out []Row
	for _, p := range profiles {
		query, args := buildQuery(p, scope)
		var rows []Row
		if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return nil, fmt.Errorf("%w: profile %s: %v", pkgerrors.ErrTimeout, p, err)
			}
			return nil, fmt.Errorf("%w: profile %s: %v", pkgerrors.ErrExtraction, p, err)
		}
		s.log.Debug("profile extracted", "profile", p, "scope", scope.String(), "rows", len(rows))
		out = append(out, rows...)
	}
	return out, nil
}

func buildQuery(profile Profile, scope domain.Scope) (string, []any) {
	switch profile {
	case ProfileViews:
		return logQuery("product_view_logs", "view", scope)
	case ProfileBuys:
		return logQuery("buy_logs", "buy", scope)
	default:
		return searchQuery(scope)
	}
}

// logQuery covers views and buys: interaction logs joined against the
// product catalog and the users table, excluding anonymous (zero) users.
func logQuery(table, action string, scope domain.Scope) (string, []any) {
	q := fmt.Sprintf(`
		SELECT
			u.id AS user_id,
			u.name AS user_name,
			l.product_id AS product_id,
			vp.product_name AS product_name,
			vp.category_id AS category_id,
			vp.category_name AS category_name,
			vp.vendor_id AS vendor_id,
			vp.vendor_name AS vendor_name,
			l.created_at AS occurred_at,
			'%s' AS action_type
		FROM %s l
		JOIN (%s) AS vp ON vp.product_id = l.product_id
		JOIN users u ON l.user_id = u.id
		WHERE l.user_id IS NOT NULL AND l.user_id != 0`, action, table, catalogJoin)

	var args []any
	switch scope.Kind {
	case domain.ScopeVendor:
		q += ` AND vp.vendor_id = ?`
		args = append(args, scope.VendorID)
	case domain.ScopeCategory:
		q += ` AND vp.category_id = ?`
		args = append(args, scope.CategoryID)
	case domain.ScopeUser:
		q += ` AND u.id = ?`
		args = append(args, scope.UserID)
	}
	return q, args
}

// searchQuery covers searches: no resolved product or category. Under a
// vendor scope only searches by users who viewed or bought that vendor's
// products are extracted, and the rows carry the vendor's key so the loader
// can relate the search to the shop.
func searchQuery(scope domain.Scope) (string, []any) {
	base := `
		SELECT
			u.id AS user_id,
			u.name AS user_name,
			NULL AS product_id,
			NULL AS product_name,
			NULL AS category_id,
			NULL AS category_name,
			%s AS vendor_id,
			%s AS vendor_name,
			sl.created_at AS occurred_at,
			'search' AS action_type
		FROM search_logs sl
		JOIN users u ON sl.user_id = u.id
		WHERE sl.user_id IS NOT NULL AND sl.user_id != 0`

	switch scope.Kind {
	case domain.ScopeVendor:
		q := fmt.Sprintf(base, "?", "(SELECT v.name FROM vendors v WHERE v.user_id = ?)") + `
		 AND sl.user_id IN (
			SELECT pvl.user_id FROM product_view_logs pvl
			JOIN products p ON p.id = pvl.product_id
			WHERE p.user_id = ?
			UNION
			SELECT bl.user_id FROM buy_logs bl
			JOIN products p ON p.id = bl.product_id
			WHERE p.user_id = ?
		 )`
		return q, []any{scope.VendorID, scope.VendorID, scope.VendorID, scope.VendorID}
	case domain.ScopeUser:
		q := fmt.Sprintf(base, "NULL", "NULL") + ` AND u.id = ?`
		return q, []any{scope.UserID}
	case domain.ScopeCategory:
		// Searches carry no category; restrict to users active in it.
		q := fmt.Sprintf(base, "NULL", "NULL") + `
		 AND sl.user_id IN (
			SELECT pvl.user_id FROM product_view_logs pvl
			JOIN products p ON p.id = pvl.product_id
			WHERE p.category_id = ?
			UNION
			SELECT bl.user_id FROM buy_logs bl
			JOIN products p ON p.id = bl.product_id
			WHERE p.category_id = ?
		 )`
		return q, []any{scope.CategoryID, scope.CategoryID}
	}
	return fmt.Sprintf(base, "NULL", "NULL"), nil
}
