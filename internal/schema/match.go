package schema

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// document pairs a record with its JSON form so filters, sorts and
// aggregates can address any field by path.
type document struct {
	rec Record
	raw []byte
}

func newDocument(rec Record) (document, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return document{}, err
	}
	return document{rec: rec, raw: raw}, nil
}

func (d document) get(path string) gjson.Result {
	return gjson.GetBytes(d.raw, path)
}

func (d document) matchesAll(filter []Condition) bool {
	for _, c := range filter {
		if !d.matches(c) {
			return false
		}
	}
	return true
}

func (d document) matches(c Condition) bool {
	res := d.get(c.Key)
	switch c.operator() {
	case OpEq:
		return equalResult(res, c.Value)
	case OpNot:
		return !equalResult(res, c.Value)
	case OpIn:
		values, _ := c.Value.([]any)
		for _, v := range values {
			if equalResult(res, v) {
				return true
			}
		}
		return false
	case OpContain:
		return containsResult(res, c.Value)
	default:
		return false
	}
}

func (d document) matchesKeyword(keyword string) bool {
	if keyword == "" {
		return true
	}
	return strings.Contains(strings.ToLower(d.rec.Name), strings.ToLower(keyword))
}

func equalResult(res gjson.Result, v any) bool {
	if !res.Exists() {
		return v == nil
	}
	if res.IsArray() {
		for _, el := range res.Array() {
			if equalScalar(el, v) {
				return true
			}
		}
		return false
	}
	return equalScalar(res, v)
}

func equalScalar(res gjson.Result, v any) bool {
	switch val := v.(type) {
	case nil:
		return res.Type == gjson.Null
	case string:
		return res.Type == gjson.String && res.Str == val
	case bool:
		return (res.Type == gjson.True || res.Type == gjson.False) && res.Bool() == val
	default:
		num, ok := toFloat(v)
		return ok && res.Type == gjson.Number && res.Num == num
	}
}

func containsResult(res gjson.Result, v any) bool {
	if res.IsArray() {
		return equalResult(res, v)
	}
	sub, ok := v.(string)
	return ok && res.Type == gjson.String && strings.Contains(res.Str, sub)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// compareResults orders numbers numerically and everything else by string
// form. Missing values sort after present ones.
func compareResults(a, b gjson.Result) int {
	switch {
	case !a.Exists() && !b.Exists():
		return 0
	case !a.Exists():
		return 1
	case !b.Exists():
		return -1
	}
	if a.Type == gjson.Number && b.Type == gjson.Number {
		switch {
		case a.Num < b.Num:
			return -1
		case a.Num > b.Num:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a.String(), b.String())
}

// project returns a copy of rec keeping only the named fields. The schema id
// is always kept.
func project(rec Record, only []string) Record {
	if len(only) == 0 {
		return rec
	}
	out := Record{SchemaID: rec.SchemaID}
	for _, field := range only {
		switch field {
		case "name":
			out.Name = rec.Name
		case "service_type":
			out.ServiceType = rec.ServiceType
		case "schema":
			out.Schema = rec.Schema
		case "labels":
			out.Labels = rec.Labels
		case "tags":
			out.Tags = rec.Tags
		case "project_id":
			out.ProjectID = rec.ProjectID
		case "domain_id":
			out.DomainID = rec.DomainID
		case "repository_info":
			out.RepositoryInfo = rec.RepositoryInfo
		case "created_at":
			out.CreatedAt = rec.CreatedAt
		}
	}
	return out
}
