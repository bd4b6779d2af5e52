package mockapi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultTestStatus = "TEST_STATUS_ACTIVE"

// store holds the server state. Every method takes the lock and clones maps
// on the way in and out, so handlers and seeding callers never share state.
type store struct {
	mu     sync.Mutex
	nextID int

	tests   map[string]map[string]any
	presets map[string]bool
	agents  map[string]map[string]any

	health  map[string][]map[string]any
	results map[string][][]map[string]any
	traces  map[string][]map[string]any

	hits map[string]int
}

func newStore() *store {
	return &store{
		nextID:  1000,
		tests:   map[string]map[string]any{},
		presets: map[string]bool{},
		agents:  map[string]map[string]any{},
		health:  map[string][]map[string]any{},
		results: map[string][][]map[string]any{},
		traces:  map[string][]map[string]any{},
		hits:    map[string]int{},
	}
}

func (st *store) insertTest(t map[string]any, preset bool) string {
	st.mu.Lock()
	defer st.mu.Unlock()

	doc := cloneMap(t)
	id, _ := doc["id"].(string)
	if id == "" {
		st.nextID++
		id = strconv.Itoa(st.nextID)
		doc["id"] = id
	}
	normalizeTest(doc)
	st.tests[id] = doc
	if preset {
		st.presets[id] = true
	}
	return id
}

func (st *store) getTest(id string) (map[string]any, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	t, ok := st.tests[id]
	if !ok {
		return nil, false
	}
	return cloneMap(t), true
}

func (st *store) putTest(id string, t map[string]any) {
	st.mu.Lock()
	defer st.mu.Unlock()
	doc := cloneMap(t)
	doc["id"] = id
	st.tests[id] = doc
}

func (st *store) removeTest(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.tests[id]; !ok {
		return false
	}
	delete(st.tests, id)
	delete(st.presets, id)
	return true
}

func (st *store) listTests(presets bool) []map[string]any {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]map[string]any, 0, len(st.tests))
	for _, id := range orderedIDs(st.tests) {
		if st.presets[id] && !presets {
			continue
		}
		out = append(out, cloneMap(st.tests[id]))
	}
	return out
}

func (st *store) testIDs() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return orderedIDs(st.tests)
}

func (st *store) insertAgent(a map[string]any) string {
	st.mu.Lock()
	defer st.mu.Unlock()

	doc := cloneMap(a)
	id, _ := doc["id"].(string)
	if id == "" {
		st.nextID++
		id = strconv.Itoa(st.nextID)
		doc["id"] = id
	}
	st.agents[id] = doc
	return id
}

func (st *store) getAgent(id string) (map[string]any, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	a, ok := st.agents[id]
	if !ok {
		return nil, false
	}
	return cloneMap(a), true
}

func (st *store) putAgent(id string, a map[string]any) {
	st.mu.Lock()
	defer st.mu.Unlock()
	doc := cloneMap(a)
	doc["id"] = id
	st.agents[id] = doc
}

func (st *store) removeAgent(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.agents[id]; !ok {
		return false
	}
	delete(st.agents, id)
	return true
}

func (st *store) listAgents() []map[string]any {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]map[string]any, 0, len(st.agents))
	for _, id := range orderedIDs(st.agents) {
		out = append(out, cloneMap(st.agents[id]))
	}
	return out
}

func (st *store) pushHealth(id string, docs ...map[string]any) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, doc := range docs {
		st.health[id] = append(st.health[id], cloneMap(doc))
	}
}

// popHealth consumes one queued health document per requested test. Nil
// entries and tests without a queue contribute nothing.
func (st *store) popHealth(ids []string) []map[string]any {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		q := st.health[id]
		if len(q) == 0 {
			continue
		}
		doc := q[0]
		st.health[id] = q[1:]
		if doc != nil {
			out = append(out, cloneMap(doc))
		}
	}
	return out
}

func (st *store) pushResults(id string, batch []map[string]any) {
	st.mu.Lock()
	defer st.mu.Unlock()
	docs := make([]map[string]any, 0, len(batch))
	for _, doc := range batch {
		docs = append(docs, cloneMap(doc))
	}
	st.results[id] = append(st.results[id], docs)
}

// popResults consumes one queued result batch per requested test and
// concatenates them.
func (st *store) popResults(ids []string) []map[string]any {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]map[string]any, 0)
	for _, id := range ids {
		q := st.results[id]
		if len(q) == 0 {
			continue
		}
		batch := q[0]
		st.results[id] = q[1:]
		for _, doc := range batch {
			out = append(out, cloneMap(doc))
		}
	}
	return out
}

func (st *store) pushTrace(id string, docs ...map[string]any) {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, doc := range docs {
		st.traces[id] = append(st.traces[id], cloneMap(doc))
	}
}

// popTrace consumes one queued trace document, nil when the queue is empty.
func (st *store) popTrace(id string) map[string]any {
	st.mu.Lock()
	defer st.mu.Unlock()
	q := st.traces[id]
	if len(q) == 0 {
		return nil
	}
	doc := q[0]
	st.traces[id] = q[1:]
	return cloneMap(doc)
}

func (st *store) hit(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.hits[key]++
}

func (st *store) hitCount(key string) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.hits[key]
}

// normalizeTest fills the server-populated attributes a stored test carries:
// timestamps, author records and an explicit status.
func normalizeTest(doc map[string]any) {
	now := time.Now().UTC().Format(time.RFC3339)
	if _, ok := doc["cdate"]; !ok {
		doc["cdate"] = now
	}
	if _, ok := doc["edate"]; !ok {
		doc["edate"] = now
	}
	if status, _ := doc["status"].(string); status == "" {
		doc["status"] = defaultTestStatus
	}
	if _, ok := doc["createdBy"]; !ok {
		doc["createdBy"] = mockUser()
	}
	if _, ok := doc["lastUpdatedBy"]; !ok {
		doc["lastUpdatedBy"] = mockUser()
	}
}

func mockUser() map[string]any {
	return map[string]any{
		"id":       "1",
		"email":    "mock@netsonde.test",
		"fullName": "Mock API",
	}
}

// applyMask copies the fields named by the comma separated mask paths from
// src into dst. Paths may carry the envelope root, "agent.status" and
// "status" select the same field. Masked paths missing from src are an
// error, mirroring how the real API rejects inconsistent patches.
func applyMask(dst, src map[string]any, mask, root string) error {
	for _, path := range strings.Split(mask, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		trimmed := strings.TrimPrefix(path, root+".")
		if err := copyPath(dst, src, strings.Split(trimmed, ".")); err != nil {
			return fmt.Errorf("mask path '%s' %s", path, err)
		}
	}
	return nil
}

func copyPath(dst, src map[string]any, segs []string) error {
	key := segs[0]
	v, ok := src[key]
	if !ok {
		return fmt.Errorf("is not present in the request body")
	}
	if len(segs) == 1 {
		dst[key] = v
		return nil
	}
	srcSub, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("is not an object in the request body")
	}
	dstSub, ok := dst[key].(map[string]any)
	if !ok {
		dstSub = map[string]any{}
		dst[key] = dstSub
	}
	return copyPath(dstSub, srcSub, segs[1:])
}

func orderedIDs[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return idSortKey(ids[i]) < idSortKey(ids[j])
	})
	return ids
}

// idSortKey orders numeric ids by value, everything else lexically after.
func idSortKey(id string) string {
	if n, err := strconv.Atoi(id); err == nil {
		return fmt.Sprintf("%010d", n)
	}
	return id
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneMap(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []map[string]any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneMap(e)
		}
		return out
	case []string:
		out := make([]string, len(x))
		copy(out, x)
		return out
	case []int:
		out := make([]int, len(x))
		copy(out, x)
		return out
	default:
		return v
	}
}
