package graph

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ajitpratap0/graphcortex/internal/models"
)

// MemStore is an in-memory Store. It backs the embedded deployment mode and
// the test suites; semantics match the Neo4j-backed store, including
// transactional all-or-nothing batch writes.
type MemStore struct {
	mu          sync.RWMutex
	entities    map[string]models.Entity
	rels        map[models.RelationshipKey]models.Relationship
	constraints map[string]struct{} // "label.property"
	indexes     map[string]struct{}
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		entities:    make(map[string]models.Entity),
		rels:        make(map[models.RelationshipKey]models.Relationship),
		constraints: make(map[string]struct{}),
		indexes:     make(map[string]struct{}),
	}
}

func (s *MemStore) EnsureUniqueConstraint(_ context.Context, label, property string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.constraints[label+"."+property] = struct{}{}
	return nil
}

func (s *MemStore) EnsureIndex(_ context.Context, label, property string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[label+"."+property] = struct{}{}
	return nil
}

func (s *MemStore) MergeEntities(ctx context.Context, entities []models.Entity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Validate the whole batch before touching state so a bad element
	// cannot leave a partial write behind.
	for i := range entities {
		if entities[i].ID == "" {
			return &QuerySyntaxError{Detail: "entity with empty id"}
		}
		if err := entities[i].Properties.Normalize(); err != nil {
			return fmt.Errorf("entity %s: %w", entities[i].ID, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range entities {
		in := entities[i].Clone()
		if existing, ok := s.entities[in.ID]; ok {
			merged := existing.Clone()
			merged.Labels = unionLabels(existing.Labels, in.Labels)
			merged.Properties = existing.Properties.Merge(in.Properties)
			merged.Confidence = in.Confidence
			if in.Text != existing.Text {
				merged.Text = in.Text
				// Text changed, the stored embedding no longer
				// describes the node.
				merged.Embedding = nil
			}
			s.entities[in.ID] = merged
			continue
		}
		s.entities[in.ID] = in
	}
	return nil
}

func (s *MemStore) MergeRelationships(ctx context.Context, rels []models.Relationship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Endpoint check first: one unresolved reference fails the batch.
	for i := range rels {
		r := &rels[i]
		if _, ok := s.entities[r.SourceID]; !ok {
			return &UnresolvedReferenceError{SourceID: r.SourceID, TargetID: r.TargetID, Type: r.Type, Missing: r.SourceID}
		}
		if _, ok := s.entities[r.TargetID]; !ok {
			return &UnresolvedReferenceError{SourceID: r.SourceID, TargetID: r.TargetID, Type: r.Type, Missing: r.TargetID}
		}
		if err := r.Properties.Normalize(); err != nil {
			return fmt.Errorf("relationship %s-[%s]->%s: %w", r.SourceID, r.Type, r.TargetID, err)
		}
	}
	for i := range rels {
		in := rels[i].Clone()
		key := in.Key()
		if existing, ok := s.rels[key]; ok {
			merged := existing.Clone()
			merged.Properties = existing.Properties.Merge(in.Properties)
			merged.Confidence = in.Confidence
			s.rels[key] = merged
			continue
		}
		s.rels[key] = in
	}
	return nil
}

func (s *MemStore) UpdateEntityProperties(ctx context.Context, id string, props models.Properties) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := props.Normalize(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	updated := e.Clone()
	updated.Properties = e.Properties.Merge(props)
	s.entities[id] = updated
	return nil
}

func (s *MemStore) DeleteEntity(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return &NotFoundError{ID: id}
	}
	delete(s.entities, id)
	for key := range s.rels {
		if key.Source == id || key.Target == id {
			delete(s.rels, key)
		}
	}
	return nil
}

func (s *MemStore) DeleteEntitiesByLabel(ctx context.Context, label string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, e := range s.entities {
		if !e.HasLabel(label) {
			continue
		}
		delete(s.entities, id)
		removed++
		for key := range s.rels {
			if key.Source == id || key.Target == id {
				delete(s.rels, key)
			}
		}
	}
	return removed, nil
}

func (s *MemStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities = make(map[string]models.Entity)
	s.rels = make(map[models.RelationshipKey]models.Relationship)
	return nil
}

func (s *MemStore) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	out := e.Clone()
	return &out, nil
}

func (s *MemStore) Entities(ctx context.Context, label string) ([]models.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		if label != "" && !e.HasLabel(label) {
			continue
		}
		out = append(out, e.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) Relationships(ctx context.Context) ([]models.Relationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Relationship, 0, len(s.rels))
	for _, r := range s.rels {
		out = append(out, r.Clone())
	}
	sortRelationships(out)
	return out, nil
}

func (s *MemStore) Neighbors(ctx context.Context, ids []string, dir Direction, limit int) ([]models.Relationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	seeds := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seeds[id] = struct{}{}
	}
	perSeed := make(map[string]int)
	var all []models.Relationship
	for _, r := range s.rels {
		all = append(all, r)
	}
	sortRelationships(all)
	var out []models.Relationship
	for _, r := range all {
		var seed string
		switch dir {
		case DirectionOutgoing:
			if _, ok := seeds[r.SourceID]; ok {
				seed = r.SourceID
			}
		case DirectionIncoming:
			if _, ok := seeds[r.TargetID]; ok {
				seed = r.TargetID
			}
		default:
			if _, ok := seeds[r.SourceID]; ok {
				seed = r.SourceID
			} else if _, ok := seeds[r.TargetID]; ok {
				seed = r.TargetID
			}
		}
		if seed == "" {
			continue
		}
		if limit > 0 && perSeed[seed] >= limit {
			continue
		}
		perSeed[seed]++
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *MemStore) SetEntityEmbedding(ctx context.Context, id string, vec []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entities[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	updated := e.Clone()
	updated.Embedding = append([]float32(nil), vec...)
	s.entities[id] = updated
	return nil
}

func (s *MemStore) Statistics(ctx context.Context) (*models.Statistics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := &models.Statistics{
		NodeCount:           int64(len(s.entities)),
		RelationshipCount:   int64(len(s.rels)),
		NodesByLabel:        make(map[string]int64),
		RelationshipsByType: make(map[string]int64),
	}
	for _, e := range s.entities {
		for _, l := range e.Labels {
			stats.NodesByLabel[l]++
		}
	}
	for key := range s.rels {
		stats.RelationshipsByType[key.Type]++
	}
	return stats, nil
}

func (s *MemStore) Schema(ctx context.Context) (*models.SchemaInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	labels := make(map[string]struct{})
	props := make(map[string]struct{})
	types := make(map[string]struct{})
	for _, e := range s.entities {
		for _, l := range e.Labels {
			labels[l] = struct{}{}
		}
		for k := range e.Properties {
			props[k] = struct{}{}
		}
	}
	for key, r := range s.rels {
		types[key.Type] = struct{}{}
		for k := range r.Properties {
			props[k] = struct{}{}
		}
	}
	return &models.SchemaInfo{
		Labels:            sortedKeys(labels),
		RelationshipTypes: sortedKeys(types),
		PropertyKeys:      sortedKeys(props),
	}, nil
}

func (s *MemStore) Ping(context.Context) error  { return nil }
func (s *MemStore) Close(context.Context) error { return nil }

var (
	countPattern = regexp.MustCompile(`(?i)^MATCH\s+\((\w+)(?::(\w+))?\)\s+RETURN\s+count\(\w+\)(?:\s+AS\s+(\w+))?$`)
	nodePattern  = regexp.MustCompile(`(?i)^MATCH\s+\((\w+)(?::(\w+))?\)(?:\s+WHERE\s+(\w+)\.(\w+)\s*=\s*(\S+))?\s+RETURN\s+(.+?)(?:\s+LIMIT\s+(\d+))?$`)
	relPattern   = regexp.MustCompile(`(?i)^MATCH\s+\((\w+)(?::(\w+))?\)-\[(\w+):(\w+)\]->\((\w+)(?::(\w+))?\)(?:\s+WHERE\s+(\w+)\.(\w+)\s*=\s*(\S+))?\s+RETURN\s+(.+?)(?:\s+LIMIT\s+(\d+))?$`)
)

// Run supports the query shapes the engine and CLI actually issue against
// the embedded store: node counts, node scans with an optional equality
// filter, and single-hop relationship matches. Anything else is a syntax
// error; full Cypher requires the Neo4j backend.
func (s *MemStore) Run(ctx context.Context, query string, params map[string]any) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(query), ";"))
	q = strings.Join(strings.Fields(q), " ")

	s.mu.RLock()
	defer s.mu.RUnlock()

	if m := countPattern.FindStringSubmatch(q); m != nil {
		return s.runCount(m), nil
	}
	if m := relPattern.FindStringSubmatch(q); m != nil {
		return s.runRelMatch(q, m, params)
	}
	if m := nodePattern.FindStringSubmatch(q); m != nil {
		return s.runNodeMatch(q, m, params)
	}
	return nil, &QuerySyntaxError{Query: query, Detail: "unsupported query shape for embedded store"}
}

func (s *MemStore) runCount(m []string) []models.Record {
	label := m[2]
	alias := m[3]
	if alias == "" {
		alias = "count(" + m[1] + ")"
	}
	var n int64
	for _, e := range s.entities {
		if label == "" || e.HasLabel(label) {
			n++
		}
	}
	return []models.Record{{Keys: []string{alias}, Values: map[string]any{alias: n}}}
}

func (s *MemStore) runNodeMatch(query string, m []string, params map[string]any) ([]models.Record, error) {
	binding, label := m[1], m[2]
	whereVar, whereProp, whereVal := m[3], m[4], m[5]
	returns := m[6]
	limit := parseLimit(m[7])

	items, err := parseReturnItems(query, returns, map[string]bool{binding: true})
	if err != nil {
		return nil, err
	}

	var matched []models.Entity
	for _, e := range s.entities {
		if label != "" && !e.HasLabel(label) {
			continue
		}
		if whereVar != "" {
			if whereVar != binding {
				return nil, &QuerySyntaxError{Query: query, Detail: fmt.Sprintf("unknown variable %q in WHERE", whereVar)}
			}
			want, err := resolveLiteral(whereVal, params)
			if err != nil {
				return nil, &QuerySyntaxError{Query: query, Detail: err.Error()}
			}
			if !valueEquals(entityValue(e, whereProp), want) {
				continue
			}
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}

	records := make([]models.Record, 0, len(matched))
	for _, e := range matched {
		rec := models.Record{Keys: itemKeys(items), Values: make(map[string]any, len(items))}
		for _, it := range items {
			if it.prop == "" {
				rec.Values[it.key] = e.Clone()
			} else {
				rec.Values[it.key] = entityValue(e, it.prop)
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *MemStore) runRelMatch(query string, m []string, params map[string]any) ([]models.Record, error) {
	srcVar, srcLabel := m[1], m[2]
	relVar, relType := m[3], m[4]
	dstVar, dstLabel := m[5], m[6]
	whereVar, whereProp, whereVal := m[7], m[8], m[9]
	returns := m[10]
	limit := parseLimit(m[11])

	items, err := parseReturnItems(query, returns, map[string]bool{srcVar: true, dstVar: true, relVar: true})
	if err != nil {
		return nil, err
	}

	type match struct {
		src, dst models.Entity
		rel      models.Relationship
	}
	var matches []match
	var rels []models.Relationship
	for _, r := range s.rels {
		rels = append(rels, r)
	}
	sortRelationships(rels)
	for _, r := range rels {
		if r.Type != relType {
			continue
		}
		src, ok := s.entities[r.SourceID]
		if !ok {
			continue
		}
		dst, ok := s.entities[r.TargetID]
		if !ok {
			continue
		}
		if srcLabel != "" && !src.HasLabel(srcLabel) {
			continue
		}
		if dstLabel != "" && !dst.HasLabel(dstLabel) {
			continue
		}
		if whereVar != "" {
			want, rerr := resolveLiteral(whereVal, params)
			if rerr != nil {
				return nil, &QuerySyntaxError{Query: query, Detail: rerr.Error()}
			}
			var got any
			switch whereVar {
			case srcVar:
				got = entityValue(src, whereProp)
			case dstVar:
				got = entityValue(dst, whereProp)
			case relVar:
				got = r.Properties[whereProp]
			default:
				return nil, &QuerySyntaxError{Query: query, Detail: fmt.Sprintf("unknown variable %q in WHERE", whereVar)}
			}
			if !valueEquals(got, want) {
				continue
			}
		}
		matches = append(matches, match{src: src, dst: dst, rel: r})
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	records := make([]models.Record, 0, len(matches))
	for _, mt := range matches {
		rec := models.Record{Keys: itemKeys(items), Values: make(map[string]any, len(items))}
		for _, it := range items {
			var v any
			switch it.binding {
			case srcVar:
				if it.prop == "" {
					v = mt.src.Clone()
				} else {
					v = entityValue(mt.src, it.prop)
				}
			case dstVar:
				if it.prop == "" {
					v = mt.dst.Clone()
				} else {
					v = entityValue(mt.dst, it.prop)
				}
			case relVar:
				if it.prop == "" {
					v = mt.rel.Clone()
				} else {
					v = mt.rel.Properties[it.prop]
				}
			}
			rec.Values[it.key] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

type returnItem struct {
	binding string
	prop    string
	key     string
}

func parseReturnItems(query, returns string, bindings map[string]bool) ([]returnItem, error) {
	var items []returnItem
	for _, raw := range strings.Split(returns, ",") {
		part := strings.TrimSpace(raw)
		key := part
		if idx := strings.Index(strings.ToUpper(part), " AS "); idx >= 0 {
			key = strings.TrimSpace(part[idx+4:])
			part = strings.TrimSpace(part[:idx])
		}
		binding, prop := part, ""
		if i := strings.Index(part, "."); i >= 0 {
			binding, prop = part[:i], part[i+1:]
		}
		if !bindings[binding] {
			return nil, &QuerySyntaxError{Query: query, Detail: fmt.Sprintf("unknown variable %q in RETURN", binding)}
		}
		items = append(items, returnItem{binding: binding, prop: prop, key: key})
	}
	return items, nil
}

func itemKeys(items []returnItem) []string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.key
	}
	return keys
}

func entityValue(e models.Entity, prop string) any {
	switch prop {
	case "id":
		return e.ID
	case "text":
		return e.Text
	case "confidence":
		return e.Confidence
	}
	return e.Properties[prop]
}

func resolveLiteral(raw string, params map[string]any) (any, error) {
	if strings.HasPrefix(raw, "$") {
		name := raw[1:]
		v, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("missing parameter $%s", name)
		}
		return v, nil
	}
	if (strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'")) ||
		(strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`)) {
		return raw[1 : len(raw)-1], nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f, nil
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b, nil
	}
	return nil, fmt.Errorf("unparseable literal %q", raw)
}

func valueEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}

func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	n, _ := strconv.Atoi(raw)
	return n
}

func unionLabels(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, l := range a {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	for _, l := range b {
		if _, ok := seen[l]; !ok {
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

func sortRelationships(rels []models.Relationship) {
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].SourceID != rels[j].SourceID {
			return rels[i].SourceID < rels[j].SourceID
		}
		if rels[i].TargetID != rels[j].TargetID {
			return rels[i].TargetID < rels[j].TargetID
		}
		return rels[i].Type < rels[j].Type
	})
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
