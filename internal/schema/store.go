package schema

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ErrNotFound is returned when a schema does not exist or is not visible to the caller
var ErrNotFound = errors.New("schema not found")

// Store holds the schemas of local repositories in memory. Schemas with a
// domain id are only visible to callers of that domain; schemas without one
// are visible to everybody.
type Store struct {
	mu    sync.RWMutex
	repos map[string][]document
	now   func() time.Time
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{
		repos: make(map[string][]document),
		now:   time.Now,
	}
}

// Put inserts or replaces a schema in a repository. A missing schema id is
// generated and a zero creation time is set to now. The stored record is returned.
func (s *Store) Put(repositoryID string, rec Record) (Record, error) {
	rec = rec.Clone()
	if rec.SchemaID == "" {
		rec.SchemaID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}

	doc, err := newDocument(rec)
	if err != nil {
		return Record{}, fmt.Errorf("encoding schema %s: %w", rec.SchemaID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.repos[repositoryID]
	if i := slices.IndexFunc(docs, func(d document) bool { return d.rec.SchemaID == rec.SchemaID }); i >= 0 {
		docs[i] = doc
	} else {
		s.repos[repositoryID] = append(docs, doc)
	}
	return rec.Clone(), nil
}

// Get returns one schema, projected to only when non-empty
func (s *Store) Get(repositoryID, schemaID, domainID string, only []string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, d := range s.repos[repositoryID] {
		if d.rec.SchemaID == schemaID && visible(d.rec, domainID) {
			return project(d.rec.Clone(), only), nil
		}
	}
	return Record{}, fmt.Errorf("%w: %s", ErrNotFound, schemaID)
}

// List evaluates q against a repository's schemas
func (s *Store) List(repositoryID string, q Query, domainID string) (ListResult, error) {
	if err := q.Validate(); err != nil {
		return ListResult{}, err
	}

	matched := s.match(repositoryID, q.Filter, q.Keyword, domainID)

	if q.Sort != nil {
		key, desc := q.Sort.Key, q.Sort.Desc
		slices.SortStableFunc(matched, func(a, b document) int {
			c := compareResults(a.get(key), b.get(key))
			if desc {
				return -c
			}
			return c
		})
	}

	total := len(matched)
	start, end := window(total, q.Page)
	matched = matched[start:end]

	results := make([]Record, 0, len(matched))
	for _, d := range matched {
		results = append(results, project(d.rec.Clone(), q.Only))
	}
	return ListResult{Results: results, TotalCount: total}, nil
}

// Stat computes the aggregates requested by q
func (s *Store) Stat(repositoryID string, q StatQuery, domainID string) (StatResult, error) {
	if err := q.Validate(); err != nil {
		return StatResult{}, err
	}

	matched := s.match(repositoryID, q.Filter, "", domainID)
	results := make(map[string]any, 2)

	if q.Count {
		results["count"] = len(matched)
	}

	if q.Distinct != "" {
		seen := make(map[string]struct{})
		distinct := make([]any, 0)
		add := func(r gjson.Result) {
			if _, ok := seen[r.Raw]; ok {
				return
			}
			seen[r.Raw] = struct{}{}
			distinct = append(distinct, r.Value())
		}
		for _, d := range matched {
			res := d.get(q.Distinct)
			switch {
			case !res.Exists():
			case res.IsArray():
				for _, el := range res.Array() {
					add(el)
				}
			default:
				add(res)
			}
		}
		results["distinct"] = distinct
	}

	return StatResult{Results: results}, nil
}

// Len returns the number of schemas stored for a repository
func (s *Store) Len(repositoryID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.repos[repositoryID])
}

func (s *Store) match(repositoryID string, filter []Condition, keyword, domainID string) []document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []document
	for _, d := range s.repos[repositoryID] {
		if visible(d.rec, domainID) && d.matchesKeyword(keyword) && d.matchesAll(filter) {
			out = append(out, d)
		}
	}
	return out
}

func visible(rec Record, domainID string) bool {
	return rec.DomainID == "" || rec.DomainID == domainID
}
