package loader

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
	"github.com/AlkaloidWells/GraphWork/internal/platform/neo4jdb"
)

// Neo4jWriter implements GraphWriter against a Neo4j instance. Upserts use
// MERGE on the key property inside a managed write transaction, so the
// merge-or-create is atomic at the store and the node identity invariant
// holds under concurrent writers.
type Neo4jWriter struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewNeo4jWriter(client *neo4jdb.Client, baseLog *logger.Logger) *Neo4jWriter {
	return &Neo4jWriter{
		client: client,
		log:    baseLog.With("writer", "Neo4jWriter"),
	}
}

// EnsureSchema creates the per-label key uniqueness constraints.
// Best-effort: restricted users may not be allowed to manage schema, so
// failures are logged and ignored.
func (w *Neo4jWriter) EnsureSchema(ctx context.Context) {
	session := w.client.WriteSession(ctx)
	defer session.Close(ctx)

	constraints := map[string]string{
		LabelUser:     KeyUser,
		LabelProduct:  KeyProduct,
		LabelCategory: KeyCategory,
		LabelVendor:   KeyVendor,
	}
	for label, key := range constraints {
		stmt := fmt.Sprintf(
			`CREATE CONSTRAINT %s_key_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE`,
			key, label, key,
		)
		if res, err := session.Run(ctx, stmt, nil); err != nil {
			w.log.Warn("neo4j schema init failed (continuing)", "label", label, "error", err)
		} else {
			_, _ = res.Consume(ctx)
		}
	}
}

func (w *Neo4jWriter) UpsertNode(ctx context.Context, ref NodeRef, props map[string]any) error {
	cypher := fmt.Sprintf(`
MERGE (n:%s {%s: $key})
SET n += $props
`, ref.Label, ref.KeyProp)
	return w.write(ctx, cypher, map[string]any{"key": ref.Key, "props": props})
}

func (w *Neo4jWriter) CreateEdge(ctx context.Context, from NodeRef, relType string, to NodeRef, props map[string]any) error {
	cypher := fmt.Sprintf(`
MATCH (a:%s {%s: $from})
MATCH (b:%s {%s: $to})
CREATE (a)-[r:%s]->(b)
SET r += $props
`, from.Label, from.KeyProp, to.Label, to.KeyProp, relType)
	if props == nil {
		props = map[string]any{}
	}
	return w.write(ctx, cypher, map[string]any{"from": from.Key, "to": to.Key, "props": props})
}

func (w *Neo4jWriter) MergeEdge(ctx context.Context, from NodeRef, relType string, to NodeRef) error {
	cypher := fmt.Sprintf(`
MATCH (a:%s {%s: $from})
MATCH (b:%s {%s: $to})
MERGE (a)-[r:%s]->(b)
`, from.Label, from.KeyProp, to.Label, to.KeyProp, relType)
	return w.write(ctx, cypher, map[string]any{"from": from.Key, "to": to.Key})
}

func (w *Neo4jWriter) write(ctx context.Context, cypher string, params map[string]any) error {
	session := w.client.WriteSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}
