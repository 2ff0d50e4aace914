package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/toolhive-federation/internal/repository"
)

const repoID = "r-1"

func seededStore(t *testing.T) *Store {
	t.Helper()

	s := NewStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{
			SchemaID:    "s-a",
			Name:        "postgres-sink",
			ServiceType: "sink",
			Labels:      map[string]string{"env": "prod"},
			Tags:        []string{"db", "sql"},
			Schema:      map[string]any{"version": 3.0},
			CreatedAt:   base,
		},
		{
			SchemaID:    "s-b",
			Name:        "kafka-source",
			ServiceType: "source",
			Labels:      map[string]string{"env": "dev"},
			Tags:        []string{"stream"},
			Schema:      map[string]any{"version": 1.0},
			CreatedAt:   base.Add(time.Hour),
		},
		{
			SchemaID:    "s-c",
			Name:        "mysql-sink",
			ServiceType: "sink",
			Labels:      map[string]string{"env": "dev"},
			Tags:        []string{"db"},
			Schema:      map[string]any{"version": 2.0},
			CreatedAt:   base.Add(2 * time.Hour),
		},
		{
			SchemaID:    "s-private",
			Name:        "private-sink",
			ServiceType: "sink",
			DomainID:    "d-other",
			CreatedAt:   base.Add(3 * time.Hour),
		},
	}
	for _, rec := range records {
		_, err := s.Put(repoID, rec)
		require.NoError(t, err)
	}
	return s
}

func ids(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.SchemaID)
	}
	return out
}

func TestStore_Put(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fixed := time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	stored, err := s.Put(repoID, Record{Name: "generated"})
	require.NoError(t, err)
	_, err = uuid.Parse(stored.SchemaID)
	require.NoError(t, err, "missing ids are generated")
	assert.Equal(t, fixed, stored.CreatedAt)

	_, err = s.Put(repoID, Record{SchemaID: stored.SchemaID, Name: "replaced"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len(repoID))

	got, err := s.Get(repoID, stored.SchemaID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "replaced", got.Name)
}

func TestStore_Get(t *testing.T) {
	t.Parallel()

	s := seededStore(t)

	got, err := s.Get(repoID, "s-a", "d-1", []string{"name"})
	require.NoError(t, err)
	assert.Equal(t, Record{SchemaID: "s-a", Name: "postgres-sink"}, got)

	_, err = s.Get(repoID, "s-private", "d-1", nil)
	assert.True(t, errors.Is(err, ErrNotFound), "schemas of another domain are hidden")

	got, err = s.Get(repoID, "s-private", "d-other", nil)
	require.NoError(t, err)
	assert.Equal(t, "private-sink", got.Name)

	_, err = s.Get("other-repo", "s-a", "", nil)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	s := seededStore(t)

	tests := []struct {
		name      string
		query     Query
		wantIDs   []string
		wantTotal int
	}{
		{
			name:      "empty query lists visible schemas in insertion order",
			query:     Query{},
			wantIDs:   []string{"s-a", "s-b", "s-c"},
			wantTotal: 3,
		},
		{
			name:      "eq on nested label",
			query:     Query{Filter: []Condition{{Key: "labels.env", Value: "dev"}}},
			wantIDs:   []string{"s-b", "s-c"},
			wantTotal: 2,
		},
		{
			name:      "eq matches any array element",
			query:     Query{Filter: []Condition{{Key: "tags", Value: "db", Operator: OpEq}}},
			wantIDs:   []string{"s-a", "s-c"},
			wantTotal: 2,
		},
		{
			name:      "not",
			query:     Query{Filter: []Condition{{Key: "service_type", Value: "sink", Operator: OpNot}}},
			wantIDs:   []string{"s-b"},
			wantTotal: 1,
		},
		{
			name:      "in on numbers",
			query:     Query{Filter: []Condition{{Key: "schema.version", Value: []any{1, 3.0}, Operator: OpIn}}},
			wantIDs:   []string{"s-a", "s-b"},
			wantTotal: 2,
		},
		{
			name:      "contain on string",
			query:     Query{Filter: []Condition{{Key: "name", Value: "sql", Operator: OpContain}}},
			wantIDs:   []string{"s-c"},
			wantTotal: 1,
		},
		{
			name:      "keyword is case insensitive",
			query:     Query{Keyword: "SINK"},
			wantIDs:   []string{"s-a", "s-c"},
			wantTotal: 2,
		},
		{
			name:      "sort descending by number",
			query:     Query{Sort: &Sort{Key: "schema.version", Desc: true}},
			wantIDs:   []string{"s-a", "s-c", "s-b"},
			wantTotal: 3,
		},
		{
			name:      "page reports total before paging",
			query:     Query{Sort: &Sort{Key: "name"}, Page: &Page{Start: 1, Limit: 1}},
			wantIDs:   []string{"s-c"},
			wantTotal: 3,
		},
		{
			name:      "page past the end",
			query:     Query{Page: &Page{Start: 10, Limit: 5}},
			wantIDs:   []string{},
			wantTotal: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := s.List(repoID, tt.query, "d-1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids(got.Results))
			assert.Equal(t, tt.wantTotal, got.TotalCount)
		})
	}
}

func TestStore_ListOnly(t *testing.T) {
	t.Parallel()

	s := seededStore(t)
	got, err := s.List(repoID, Query{Only: []string{"tags"}, Keyword: "kafka"}, "")
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, Record{SchemaID: "s-b", Tags: []string{"stream"}}, got.Results[0])
}

func TestStore_ListInvalidQuery(t *testing.T) {
	t.Parallel()

	s := seededStore(t)
	tests := []Query{
		{Filter: []Condition{{Key: "name", Value: "x", Operator: "like"}}},
		{Filter: []Condition{{Value: "x"}}},
		{Filter: []Condition{{Key: "name", Value: "x", Operator: OpIn}}},
		{Page: &Page{Start: -1}},
		{Sort: &Sort{}},
	}
	for _, q := range tests {
		_, err := s.List(repoID, q, "")
		assert.True(t, errors.Is(err, ErrInvalidQuery), "query %+v", q)
	}
}

func TestStore_Stat(t *testing.T) {
	t.Parallel()

	s := seededStore(t)

	got, err := s.Stat(repoID, StatQuery{
		Filter:   []Condition{{Key: "service_type", Value: "sink"}},
		Count:    true,
		Distinct: "tags",
	}, "d-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Results["count"])
	assert.Equal(t, []any{"db", "sql"}, got.Results["distinct"])

	_, err = s.Stat(repoID, StatQuery{}, "")
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}

func TestRecord_WithRepository(t *testing.T) {
	t.Parallel()

	original := Record{
		SchemaID:       "abc",
		Schema:         map[string]any{"nested": map[string]any{"k": "v"}},
		Labels:         map[string]string{"a": "b"},
		Tags:           []string{"x"},
		RepositoryInfo: RepositoryInfo{Name: "upstream", RepositoryType: repository.TypeLocal},
	}

	info := InfoFor(repository.Record{RepositoryID: "r-1", Name: "marketplace", RepositoryType: repository.TypeRemote})
	rewritten := original.WithRepository(info)

	assert.Equal(t, info, rewritten.RepositoryInfo)
	assert.Equal(t, "upstream", original.RepositoryInfo.Name, "original must not be mutated")

	rewritten.Schema["nested"].(map[string]any)["k"] = "changed"
	rewritten.Labels["a"] = "changed"
	rewritten.Tags[0] = "changed"
	assert.Equal(t, "v", original.Schema["nested"].(map[string]any)["k"])
	assert.Equal(t, "b", original.Labels["a"])
	assert.Equal(t, "x", original.Tags[0])
}

func TestRecord_Attribute(t *testing.T) {
	t.Parallel()

	upstream := RepositoryInfo{Name: "upstream", RepositoryType: repository.TypeLocal}
	info := InfoFor(repository.Record{RepositoryID: "r-1", Name: "marketplace", RepositoryType: repository.TypeRemote})

	tests := []struct {
		name string
		only []string
		want RepositoryInfo
	}{
		{name: "no projection", want: info},
		{name: "projection with repository info", only: []string{"name", "repository_info"}, want: info},
		{name: "projection without repository info", only: []string{"name"}, want: RepositoryInfo{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			original := Record{SchemaID: "abc", Name: "postgres", RepositoryInfo: upstream}
			got := original.Attribute(info, tt.only)

			assert.Equal(t, tt.want, got.RepositoryInfo)
			assert.Equal(t, upstream, original.RepositoryInfo)
		})
	}
}

func TestSortAndPageRecords(t *testing.T) {
	t.Parallel()

	records := []Record{
		{SchemaID: "b", Name: "beta"},
		{SchemaID: "c"},
		{SchemaID: "a", Name: "alpha"},
	}
	require.NoError(t, SortRecords(records, &Sort{Key: "name"}))
	assert.Equal(t, []string{"a", "b", "c"}, ids(records), "records without the key sort last")

	require.NoError(t, SortRecords(records, &Sort{Key: "schema_id", Desc: true}))
	assert.Equal(t, []string{"c", "b", "a"}, ids(records))

	assert.Equal(t, []string{"b"}, ids(PageRecords(records, &Page{Start: 1, Limit: 1})))
	assert.Equal(t, []string{"c", "b", "a"}, ids(PageRecords(records, nil)))
	assert.Empty(t, PageRecords(records, &Page{Start: 7}))
}
