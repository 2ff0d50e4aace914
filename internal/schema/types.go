// Package schema defines plugin schema records, the query language used to
// list them, and the in-memory store backing local repositories.
package schema

import (
	"maps"
	"slices"
	"time"

	"github.com/stacklok/toolhive-federation/internal/repository"
)

// RepositoryInfo identifies the repository a schema is served from
type RepositoryInfo struct {
	RepositoryID   string          `json:"repository_id,omitempty" yaml:"id,omitempty"`
	Name           string          `json:"name" yaml:"name"`
	RepositoryType repository.Type `json:"repository_type" yaml:"type"`
}

// InfoFor returns the repository info describing rec
func InfoFor(rec repository.Record) RepositoryInfo {
	return RepositoryInfo{
		RepositoryID:   rec.RepositoryID,
		Name:           rec.Name,
		RepositoryType: rec.RepositoryType,
	}
}

// Record is one plugin schema
type Record struct {
	SchemaID       string            `json:"schema_id" yaml:"id,omitempty"`
	Name           string            `json:"name,omitempty" yaml:"name"`
	ServiceType    string            `json:"service_type,omitempty" yaml:"serviceType,omitempty"`
	Schema         map[string]any    `json:"schema,omitempty" yaml:"schema,omitempty"`
	Labels         map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Tags           []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	ProjectID      string            `json:"project_id,omitempty" yaml:"projectId,omitempty"`
	DomainID       string            `json:"domain_id,omitempty" yaml:"domainId,omitempty"`
	RepositoryInfo RepositoryInfo    `json:"repository_info,omitzero" yaml:"-"`
	CreatedAt      time.Time         `json:"created_at,omitzero" yaml:"createdAt,omitempty"`
}

// Clone returns a deep copy of r
func (r Record) Clone() Record {
	out := r
	out.Schema = cloneMap(r.Schema)
	out.Labels = maps.Clone(r.Labels)
	out.Tags = slices.Clone(r.Tags)
	return out
}

// WithRepository returns a deep copy of r attributed to info. r is left untouched.
func (r Record) WithRepository(info RepositoryInfo) Record {
	return r.Attribute(info, nil)
}

// Attribute is WithRepository under a field projection. When only is
// non-empty and leaves out repository_info, the copy carries no repository info.
func (r Record) Attribute(info RepositoryInfo, only []string) Record {
	out := r.Clone()
	if len(only) > 0 && !slices.Contains(only, "repository_info") {
		out.RepositoryInfo = RepositoryInfo{}
		return out
	}
	out.RepositoryInfo = info
	return out
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
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}

// ListResult is one page of schemas and the number of matches before paging
type ListResult struct {
	Results    []Record `json:"results"`
	TotalCount int      `json:"total_count"`
}

// StatResult holds aggregate results keyed by aggregate name ("count", "distinct")
type StatResult struct {
	Results map[string]any `json:"results"`
}
