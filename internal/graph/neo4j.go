package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ajitpratap0/graphcortex/internal/models"
)

// identPattern is the shape we accept for labels and relationship types.
// Neo4j cannot parameterize these, so they are validated and spliced into
// the query text; everything else travels as $params.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Neo4jStore is a Store backed by a Neo4j (or Cypher-compatible) server.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	db     string
	logger *slog.Logger
}

// Neo4jConfig carries the connection settings for NewNeo4jStore.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// NewNeo4jStore connects to the server and verifies connectivity before
// returning.
func NewNeo4jStore(ctx context.Context, cfg Neo4jConfig, logger *slog.Logger) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, &ConnectionError{Err: err}
	}
	logger.Info("connected to graph store", "uri", cfg.URI, "database", cfg.Database)
	return &Neo4jStore{driver: driver, db: cfg.Database, logger: logger}, nil
}

func (s *Neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.db,
	})
}

func validIdent(name string) error {
	if !identPattern.MatchString(name) {
		return &QuerySyntaxError{Detail: fmt.Sprintf("invalid identifier %q", name)}
	}
	return nil
}

func (s *Neo4jStore) EnsureUniqueConstraint(ctx context.Context, label, property string) error {
	if err := validIdent(label); err != nil {
		return err
	}
	if err := validIdent(property); err != nil {
		return err
	}
	query := fmt.Sprintf(
		"CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.%s IS UNIQUE",
		label, property)
	return s.write(ctx, query, nil)
}

func (s *Neo4jStore) EnsureIndex(ctx context.Context, label, property string) error {
	if err := validIdent(label); err != nil {
		return err
	}
	if err := validIdent(property); err != nil {
		return err
	}
	query := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS FOR (n:%s) ON (n.%s)",
		label, property)
	return s.write(ctx, query, nil)
}

// MergeEntities groups the batch by label set so each group goes through
// one UNWIND, then applies every group inside a single managed transaction.
// Labels cannot be parameterized in Cypher, so each distinct combination
// gets its own validated query text.
func (s *Neo4jStore) MergeEntities(ctx context.Context, entities []models.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	byLabels := make(map[string][]map[string]any)
	for i := range entities {
		e := &entities[i]
		if e.ID == "" {
			return &QuerySyntaxError{Detail: "entity with empty id"}
		}
		if err := e.Properties.Normalize(); err != nil {
			return fmt.Errorf("entity %s: %w", e.ID, err)
		}
		labels := e.Labels
		if len(labels) == 0 {
			labels = []string{e.PrimaryLabel()}
		}
		for _, l := range labels {
			if err := validIdent(l); err != nil {
				return err
			}
		}
		key := strings.Join(labels, ":")
		byLabels[key] = append(byLabels[key], map[string]any{
			"id":         e.ID,
			"text":       e.Text,
			"confidence": e.Confidence,
			"props":      map[string]any(e.Properties.Clone()),
		})
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for labels, rows := range byLabels {
			query := fmt.Sprintf(`
UNWIND $rows AS row
MERGE (n:%s {id: row.id})
SET n += row.props,
    n.confidence = row.confidence
FOREACH (_ IN CASE WHEN n.text IS NULL OR n.text <> row.text THEN [1] ELSE [] END |
    SET n.text = row.text, n.embedding = NULL)`, labels)
			if _, err := tx.Run(ctx, query, map[string]any{"rows": rows}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return s.mapError("merge entities", err)
	}
	return nil
}

// MergeRelationships groups by type, verifies both endpoints exist before
// merging, and applies everything in one transaction.
func (s *Neo4jStore) MergeRelationships(ctx context.Context, rels []models.Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	byType := make(map[string][]map[string]any)
	for i := range rels {
		r := &rels[i]
		if err := validIdent(r.Type); err != nil {
			return err
		}
		if err := r.Properties.Normalize(); err != nil {
			return fmt.Errorf("relationship %s-[%s]->%s: %w", r.SourceID, r.Type, r.TargetID, err)
		}
		byType[r.Type] = append(byType[r.Type], map[string]any{
			"source":     r.SourceID,
			"target":     r.TargetID,
			"confidence": r.Confidence,
			"props":      map[string]any(r.Properties.Clone()),
		})
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for relType, rows := range byType {
			// Endpoint existence check: any dangling reference
			// aborts the transaction.
			check := `
UNWIND $rows AS row
OPTIONAL MATCH (a {id: row.source})
OPTIONAL MATCH (b {id: row.target})
WITH row, a, b WHERE a IS NULL OR b IS NULL
RETURN row.source AS source, row.target AS target,
       a IS NULL AS missingSource LIMIT 1`
			res, err := tx.Run(ctx, check, map[string]any{"rows": rows})
			if err != nil {
				return nil, err
			}
			if res.Next(ctx) {
				rec := res.Record()
				src, _ := rec.Get("source")
				dst, _ := rec.Get("target")
				missingSrc, _ := rec.Get("missingSource")
				missing := fmt.Sprintf("%v", dst)
				if b, ok := missingSrc.(bool); ok && b {
					missing = fmt.Sprintf("%v", src)
				}
				return nil, &UnresolvedReferenceError{
					SourceID: fmt.Sprintf("%v", src),
					TargetID: fmt.Sprintf("%v", dst),
					Type:     relType,
					Missing:  missing,
				}
			}
			merge := fmt.Sprintf(`
UNWIND $rows AS row
MATCH (a {id: row.source})
MATCH (b {id: row.target})
MERGE (a)-[r:%s]->(b)
SET r += row.props, r.confidence = row.confidence`, relType)
			if _, err := tx.Run(ctx, merge, map[string]any{"rows": rows}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		var unresolved *UnresolvedReferenceError
		if errors.As(err, &unresolved) {
			return unresolved
		}
		return s.mapError("merge relationships", err)
	}
	return nil
}

func (s *Neo4jStore) UpdateEntityProperties(ctx context.Context, id string, props models.Properties) error {
	if err := props.Normalize(); err != nil {
		return err
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (n {id: $id}) SET n += $props RETURN n.id",
			map[string]any{"id": id, "props": map[string]any(props)})
		if err != nil {
			return nil, err
		}
		return res.Next(ctx), nil
	})
	if err != nil {
		return s.mapError("update entity", err)
	}
	if found, ok := result.(bool); ok && !found {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (s *Neo4jStore) DeleteEntity(ctx context.Context, id string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (n {id: $id}) DETACH DELETE n RETURN 1 AS found",
			map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		return res.Next(ctx), nil
	})
	if err != nil {
		return s.mapError("delete entity", err)
	}
	if found, ok := result.(bool); ok && !found {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (s *Neo4jStore) DeleteEntitiesByLabel(ctx context.Context, label string) (int64, error) {
	if err := validIdent(label); err != nil {
		return 0, err
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		query := fmt.Sprintf(
			"MATCH (n:%s) WITH collect(n) AS nodes, count(n) AS total FOREACH (x IN nodes | DETACH DELETE x) RETURN total",
			label)
		res, err := tx.Run(ctx, query, nil)
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			if v, ok := res.Record().Get("total"); ok {
				return v, nil
			}
		}
		return int64(0), nil
	})
	if err != nil {
		return 0, s.mapError("delete by label", err)
	}
	n, _ := result.(int64)
	return n, nil
}

func (s *Neo4jStore) Clear(ctx context.Context) error {
	return s.write(ctx, "MATCH (n) DETACH DELETE n", nil)
}

func (s *Neo4jStore) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	records, err := s.read(ctx,
		"MATCH (n {id: $id}) RETURN n, labels(n) AS labels",
		map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &NotFoundError{ID: id}
	}
	e, err := entityFromRecord(records[0])
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Neo4jStore) Entities(ctx context.Context, label string) ([]models.Entity, error) {
	query := "MATCH (n) RETURN n, labels(n) AS labels ORDER BY n.id"
	if label != "" {
		if err := validIdent(label); err != nil {
			return nil, err
		}
		query = fmt.Sprintf("MATCH (n:%s) RETURN n, labels(n) AS labels ORDER BY n.id", label)
	}
	records, err := s.read(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.Entity, 0, len(records))
	for _, rec := range records {
		e, err := entityFromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *Neo4jStore) Relationships(ctx context.Context) ([]models.Relationship, error) {
	records, err := s.read(ctx, `
MATCH (a)-[r]->(b)
RETURN a.id AS source, b.id AS target, type(r) AS relType, properties(r) AS props
ORDER BY source, target, relType`, nil)
	if err != nil {
		return nil, err
	}
	return relationshipsFromRecords(records)
}

func (s *Neo4jStore) Neighbors(ctx context.Context, ids []string, dir Direction, limit int) ([]models.Relationship, error) {
	var pattern string
	switch dir {
	case DirectionOutgoing:
		pattern = "(n)-[r]->(m)"
	case DirectionIncoming:
		pattern = "(n)<-[r]-(m)"
	default:
		pattern = "(n)-[r]-(m)"
	}
	query := fmt.Sprintf(`
UNWIND $ids AS seed
MATCH (n {id: seed})
MATCH %s
WITH startNode(r) AS a, endNode(r) AS b, r
RETURN DISTINCT a.id AS source, b.id AS target, type(r) AS relType, properties(r) AS props
ORDER BY source, target, relType`, pattern)
	if limit > 0 {
		query = fmt.Sprintf(`
UNWIND $ids AS seed
MATCH (n {id: seed})
CALL {
    WITH n
    MATCH %s
    RETURN r LIMIT %d
}
WITH startNode(r) AS a, endNode(r) AS b, r
RETURN DISTINCT a.id AS source, b.id AS target, type(r) AS relType, properties(r) AS props
ORDER BY source, target, relType`, pattern, limit)
	}
	records, err := s.read(ctx, query, map[string]any{"ids": ids})
	if err != nil {
		return nil, err
	}
	return relationshipsFromRecords(records)
}

func (s *Neo4jStore) SetEntityEmbedding(ctx context.Context, id string, vec []float32) error {
	asFloat64 := make([]float64, len(vec))
	for i, v := range vec {
		asFloat64[i] = float64(v)
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (n {id: $id}) SET n.embedding = $vec RETURN n.id",
			map[string]any{"id": id, "vec": asFloat64})
		if err != nil {
			return nil, err
		}
		return res.Next(ctx), nil
	})
	if err != nil {
		return s.mapError("set embedding", err)
	}
	if found, ok := result.(bool); ok && !found {
		return &NotFoundError{ID: id}
	}
	return nil
}

func (s *Neo4jStore) Statistics(ctx context.Context) (*models.Statistics, error) {
	stats := &models.Statistics{
		NodesByLabel:        make(map[string]int64),
		RelationshipsByType: make(map[string]int64),
	}
	records, err := s.read(ctx,
		"MATCH (n) UNWIND labels(n) AS label RETURN label, count(*) AS total", nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		label, _ := rec.Values["label"].(string)
		total, _ := rec.Values["total"].(int64)
		stats.NodesByLabel[label] = total
	}
	records, err = s.read(ctx, "MATCH (n) RETURN count(n) AS total", nil)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		stats.NodeCount, _ = records[0].Values["total"].(int64)
	}
	records, err = s.read(ctx,
		"MATCH ()-[r]->() RETURN type(r) AS relType, count(*) AS total", nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		relType, _ := rec.Values["relType"].(string)
		total, _ := rec.Values["total"].(int64)
		stats.RelationshipsByType[relType] = total
		stats.RelationshipCount += total
	}
	return stats, nil
}

func (s *Neo4jStore) Schema(ctx context.Context) (*models.SchemaInfo, error) {
	info := &models.SchemaInfo{}
	records, err := s.read(ctx, "CALL db.labels() YIELD label RETURN label ORDER BY label", nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if l, ok := rec.Values["label"].(string); ok {
			info.Labels = append(info.Labels, l)
		}
	}
	records, err = s.read(ctx,
		"CALL db.relationshipTypes() YIELD relationshipType RETURN relationshipType ORDER BY relationshipType", nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if t, ok := rec.Values["relationshipType"].(string); ok {
			info.RelationshipTypes = append(info.RelationshipTypes, t)
		}
	}
	records, err = s.read(ctx,
		"CALL db.propertyKeys() YIELD propertyKey RETURN propertyKey ORDER BY propertyKey", nil)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if k, ok := rec.Values["propertyKey"].(string); ok {
			info.PropertyKeys = append(info.PropertyKeys, k)
		}
	}
	return info, nil
}

func (s *Neo4jStore) Run(ctx context.Context, query string, params map[string]any) ([]models.Record, error) {
	return s.read(ctx, query, params)
}

func (s *Neo4jStore) Ping(ctx context.Context) error {
	if err := s.driver.VerifyConnectivity(ctx); err != nil {
		return &ConnectionError{Err: err}
	}
	return nil
}

func (s *Neo4jStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Neo4jStore) write(ctx context.Context, query string, params map[string]any) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		_, err := tx.Run(ctx, query, params)
		return nil, err
	})
	if err != nil {
		return s.mapError("write", err)
	}
	return nil
}

func (s *Neo4jStore) read(ctx context.Context, query string, params map[string]any) ([]models.Record, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)
	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, s.mapQueryError(query, err)
	}
	var records []models.Record
	for result.Next(ctx) {
		rec := result.Record()
		out := models.Record{
			Keys:   append([]string(nil), rec.Keys...),
			Values: make(map[string]any, len(rec.Keys)),
		}
		for _, key := range rec.Keys {
			v, _ := rec.Get(key)
			out.Values[key] = convertValue(v)
		}
		records = append(records, out)
	}
	if err := result.Err(); err != nil {
		return nil, s.mapQueryError(query, err)
	}
	return records, nil
}

// convertValue maps driver graph types onto our model types so callers never
// see neo4j.Node or neo4j.Relationship.
func convertValue(v any) any {
	switch x := v.(type) {
	case neo4j.Node:
		e := models.Entity{
			Labels:     append([]string(nil), x.Labels...),
			Properties: models.Properties{},
		}
		for k, pv := range x.Props {
			switch k {
			case "id":
				e.ID, _ = pv.(string)
			case "text":
				e.Text, _ = pv.(string)
			case "confidence":
				e.Confidence, _ = pv.(float64)
			case "embedding":
				// Internal, not exposed through query results.
			default:
				e.Properties[k] = pv
			}
		}
		return e
	case neo4j.Relationship:
		r := models.Relationship{Type: x.Type, Properties: models.Properties{}}
		for k, pv := range x.Props {
			if k == "confidence" {
				r.Confidence, _ = pv.(float64)
				continue
			}
			r.Properties[k] = pv
		}
		return r
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = convertValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = convertValue(item)
		}
		return out
	}
	return v
}

func entityFromRecord(rec models.Record) (*models.Entity, error) {
	e, ok := rec.Values["n"].(models.Entity)
	if !ok {
		return nil, &QueryExecutionError{Err: errors.New("record did not contain a node")}
	}
	if labels, ok := rec.Values["labels"].([]any); ok {
		e.Labels = e.Labels[:0]
		for _, l := range labels {
			if s, ok := l.(string); ok {
				e.Labels = append(e.Labels, s)
			}
		}
	}
	return &e, nil
}

func relationshipsFromRecords(records []models.Record) ([]models.Relationship, error) {
	out := make([]models.Relationship, 0, len(records))
	for _, rec := range records {
		r := models.Relationship{Properties: models.Properties{}}
		r.SourceID, _ = rec.Values["source"].(string)
		r.TargetID, _ = rec.Values["target"].(string)
		r.Type, _ = rec.Values["relType"].(string)
		if props, ok := rec.Values["props"].(map[string]any); ok {
			for k, v := range props {
				if k == "confidence" {
					r.Confidence, _ = v.(float64)
					continue
				}
				r.Properties[k] = v
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// mapError classifies driver errors into the store error taxonomy.
func (s *Neo4jStore) mapError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &QueryTimeoutError{Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var neo4jErr *neo4j.Neo4jError
	if errors.As(err, &neo4jErr) {
		switch {
		case strings.Contains(neo4jErr.Code, "ConstraintValidationFailed"),
			strings.Contains(neo4jErr.Code, "ConstraintViolation"):
			return &ConstraintViolationError{Detail: neo4jErr.Msg}
		case strings.Contains(neo4jErr.Code, "SyntaxError"):
			return &QuerySyntaxError{Detail: neo4jErr.Msg}
		}
		return &QueryExecutionError{Err: err}
	}
	if neo4j.IsConnectivityError(err) {
		return &ConnectionError{Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Neo4jStore) mapQueryError(query string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &QueryTimeoutError{Query: query, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var neo4jErr *neo4j.Neo4jError
	if errors.As(err, &neo4jErr) {
		if strings.Contains(neo4jErr.Code, "SyntaxError") {
			return &QuerySyntaxError{Query: query, Detail: neo4jErr.Msg}
		}
		return &QueryExecutionError{Query: query, Err: err}
	}
	if neo4j.IsConnectivityError(err) {
		return &ConnectionError{Err: err}
	}
	return &QueryExecutionError{Query: query, Err: err}
}
