package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AlkaloidWells/GraphWork/internal/domain"
	pkgerrors "github.com/AlkaloidWells/GraphWork/internal/pkg/errors"
	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
	"github.com/AlkaloidWells/GraphWork/internal/platform/neo4jdb"
)

// Runner executes one read-only traversal query and returns its records as
// keyed maps.
type Runner interface {
	Read(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)
}

// Neo4jRunner implements Runner over a Neo4j session per query.
type Neo4jRunner struct {
	client *neo4jdb.Client
}

func NewNeo4jRunner(client *neo4jdb.Client) *Neo4jRunner {
	return &Neo4jRunner{client: client}
}

func (r *Neo4jRunner) Read(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := r.client.ReadSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			rows = append(rows, rec.AsMap())
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]map[string]any), nil
}

type Config struct {
	DefaultLimit int
	Timeout      time.Duration
}

// Engine answers recommendation queries by scoring weighted traversals of
// the interaction graph. All queries are read-only. A query for a target
// that does not exist in the graph fails with ErrNotFound so callers can
// tell "no recommendations" from "unknown user".
type Engine struct {
	run   Runner
	cache Cache
	log   *logger.Logger
	cfg   Config
}

// NewEngine builds an engine. cache may be nil, in which case results are
// computed on every call.
func NewEngine(run Runner, cache Cache, baseLog *logger.Logger, cfg Config) *Engine {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	return &Engine{
		run:   run,
		cache: cache,
		log:   baseLog.With("service", "RecommendationEngine"),
		cfg:   cfg,
	}
}

// DefaultLimit is the limit applied when callers do not pass one.
func (e *Engine) DefaultLimit() int { return e.cfg.DefaultLimit }

// CoViewedProducts returns products viewed by users who share a viewed
// product with the target, excluding products the target already viewed,
// ranked by distinct co-viewer count.
func (e *Engine) CoViewedProducts(ctx context.Context, userID int64, limit int) ([]domain.Ranked, error) {
	return e.rankedQuery(ctx, fmt.Sprintf("coviewed:%d", userID), limit, func(ctx context.Context, limit int) ([]domain.Ranked, error) {
		if err := e.ensureExists(ctx, "User", "user_id", userID); err != nil {
			return nil, err
		}
		rows, err := e.read(ctx, `
MATCH (target:User {user_id: $user_id})-[:VIEWED]->(:Product)<-[:VIEWED]-(similar:User)-[:VIEWED]->(rec:Product)
WHERE similar <> target AND NOT (target)-[:VIEWED]->(rec)
RETURN rec.product_id AS id, count(DISTINCT similar) AS score
ORDER BY score DESC, id ASC
LIMIT $limit
`, map[string]any{"user_id": userID, "limit": limit})
		if err != nil {
			return nil, err
		}
		return toRanked(rows)
	})
}

// SimilarUsers returns users sharing any view/buy/search of a common
// product with the target, ranked by shared interaction count.
func (e *Engine) SimilarUsers(ctx context.Context, userID int64, limit int) ([]domain.Ranked, error) {
	return e.rankedQuery(ctx, fmt.Sprintf("similar:%d", userID), limit, func(ctx context.Context, limit int) ([]domain.Ranked, error) {
		if err := e.ensureExists(ctx, "User", "user_id", userID); err != nil {
			return nil, err
		}
		rows, err := e.read(ctx, `
MATCH (target:User {user_id: $user_id})-[:VIEWED|BOUGHT|SEARCHED]->(p:Product)<-[:VIEWED|BOUGHT|SEARCHED]-(similar:User)
WHERE similar <> target
RETURN similar.user_id AS id, count(p) AS score
ORDER BY score DESC, id ASC
LIMIT $limit
`, map[string]any{"user_id": userID, "limit": limit})
		if err != nil {
			return nil, err
		}
		return toRanked(rows)
	})
}

// CategoryAudience returns users who interacted with any product in the
// category, ranked by interaction count.
func (e *Engine) CategoryAudience(ctx context.Context, categoryID int64, limit int) ([]domain.Ranked, error) {
	return e.rankedQuery(ctx, fmt.Sprintf("audience:%d", categoryID), limit, func(ctx context.Context, limit int) ([]domain.Ranked, error) {
		if err := e.ensureExists(ctx, "Category", "category_id", categoryID); err != nil {
			return nil, err
		}
		rows, err := e.read(ctx, `
MATCH (u:User)-[:VIEWED|BOUGHT|SEARCHED]->(p:Product)-[:BELONGS_TO]->(:Category {category_id: $category_id})
RETURN u.user_id AS id, count(p) AS score
ORDER BY score DESC, id ASC
LIMIT $limit
`, map[string]any{"category_id": categoryID, "limit": limit})
		if err != nil {
			return nil, err
		}
		return toRanked(rows)
	})
}

// ViewedNotBought returns products the target viewed but never bought. The
// score is the view count. Ordering follows the most recent view timestamp
// when the interaction edges carry one; edges written without timestamps
// sort after timestamped ones in insertion order, which is not a strict
// ordering guarantee.
func (e *Engine) ViewedNotBought(ctx context.Context, userID int64, limit int) ([]domain.Ranked, error) {
	return e.rankedQuery(ctx, fmt.Sprintf("viewednotbought:%d", userID), limit, func(ctx context.Context, limit int) ([]domain.Ranked, error) {
		if err := e.ensureExists(ctx, "User", "user_id", userID); err != nil {
			return nil, err
		}
		rows, err := e.read(ctx, `
MATCH (u:User {user_id: $user_id})-[v:VIEWED]->(p:Product)
WHERE NOT (u)-[:BOUGHT]->(p)
WITH p, count(v) AS score, max(v.occurred_at) AS last_seen
RETURN p.product_id AS id, score, last_seen
ORDER BY last_seen IS NULL, last_seen DESC, id ASC
LIMIT $limit
`, map[string]any{"user_id": userID, "limit": limit})
		if err != nil {
			return nil, err
		}
		return toRanked(rows)
	})
}

// RecommendProducts computes the composite score over candidate products
// the target has not bought:
//
//	score = 3×bought_overlap + 2×viewed_overlap + 1×searched_overlap
//
// where each overlap counts distinct other users who performed the action
// on both a product the target acted on and the candidate. Ties break by
// ascending product key, so results are reproducible for a fixed graph.
func (e *Engine) RecommendProducts(ctx context.Context, userID int64, limit int) ([]domain.Ranked, error) {
	return e.rankedQuery(ctx, fmt.Sprintf("products:%d", userID), limit, func(ctx context.Context, limit int) ([]domain.Ranked, error) {
		if err := e.ensureExists(ctx, "User", "user_id", userID); err != nil {
			return nil, err
		}

		overlaps := make(map[domain.ActionKind][]domain.Ranked, 3)
		for _, action := range []domain.ActionKind{domain.ActionBuy, domain.ActionView, domain.ActionSearch} {
			rel := action.RelType()
			rows, err := e.read(ctx, fmt.Sprintf(`
MATCH (target:User {user_id: $user_id})-[:%s]->(:Product)<-[:%s]-(other:User)-[:%s]->(rec:Product)
WHERE other <> target AND NOT (target)-[:BOUGHT]->(rec)
RETURN rec.product_id AS id, count(DISTINCT other) AS score
`, rel, rel, rel), map[string]any{"user_id": userID})
			if err != nil {
				return nil, err
			}
			ranked, err := toRanked(rows)
			if err != nil {
				return nil, err
			}
			overlaps[action] = ranked
		}

		scores := CombineOverlaps(overlaps[domain.ActionBuy], overlaps[domain.ActionView], overlaps[domain.ActionSearch])
		if len(scores) > limit {
			scores = scores[:limit]
		}
		return scores, nil
	})
}

// rankedQuery handles the shared query plumbing: limit validation, cache
// lookup, timeout, and cache fill.
func (e *Engine) rankedQuery(ctx context.Context, cacheKey string, limit int, compute func(context.Context, int) ([]domain.Ranked, error)) ([]domain.Ranked, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", pkgerrors.ErrQuery, limit)
	}
	if limit == 0 {
		return []domain.Ranked{}, nil
	}

	key := fmt.Sprintf("%s:%d", cacheKey, limit)
	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, key); ok {
			return cached, nil
		}
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	results, err := compute(ctx, limit)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []domain.Ranked{}
	}
	if e.cache != nil {
		e.cache.Set(ctx, key, results)
	}
	return results, nil
}

func (e *Engine) ensureExists(ctx context.Context, label, keyProp string, id int64) error {
	rows, err := e.read(ctx, fmt.Sprintf(`MATCH (n:%s {%s: $id}) RETURN count(n) AS c`, label, keyProp), map[string]any{"id": id})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: existence check returned no rows", pkgerrors.ErrQuery)
	}
	count, _ := rows[0]["c"].(int64)
	if count == 0 {
		return fmt.Errorf("%s %d: %w", label, id, pkgerrors.ErrNotFound)
	}
	return nil
}

func (e *Engine) read(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	rows, err := e.run.Read(ctx, cypher, params)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", pkgerrors.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrQuery, err)
	}
	return rows, nil
}

func toRanked(rows []map[string]any) ([]domain.Ranked, error) {
	out := make([]domain.Ranked, 0, len(rows))
	for _, row := range rows {
		id, ok := row["id"].(int64)
		if !ok {
			return nil, fmt.Errorf("%w: non-integer id in result row", pkgerrors.ErrQuery)
		}
		score, ok := row["score"].(int64)
		if !ok {
			return nil, fmt.Errorf("%w: non-integer score in result row", pkgerrors.ErrQuery)
		}
		out = append(out, domain.Ranked{ID: id, Score: score})
	}
	return out, nil
}
