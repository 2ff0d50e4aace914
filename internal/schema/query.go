package schema

import (
	"errors"
	"fmt"
)

// Operator is a filter comparison
type Operator string

const (
	// OpEq matches values equal to the condition value. Arrays match if any element does.
	OpEq Operator = "eq"
	// OpNot matches values not equal to the condition value
	OpNot Operator = "not"
	// OpIn matches values equal to any element of the condition's list value
	OpIn Operator = "in"
	// OpContain matches strings containing, or arrays holding, the condition value
	OpContain Operator = "contain"
)

// ErrInvalidQuery is returned for queries that cannot be evaluated
var ErrInvalidQuery = errors.New("invalid query")

// Condition is one filter term. Key is a dotted path into the record's JSON
// form, e.g. "name", "labels.env" or "schema.properties.port.type".
type Condition struct {
	Key      string   `json:"key"`
	Value    any      `json:"value"`
	Operator Operator `json:"operator,omitempty"`
}

// Page selects a window of results. A zero Limit means no limit.
type Page struct {
	Start int `json:"start"`
	Limit int `json:"limit"`
}

// Sort orders results by the value at Key
type Sort struct {
	Key  string `json:"key"`
	Desc bool   `json:"desc,omitempty"`
}

// Query is the plain query form accepted by ListSchemas
type Query struct {
	Filter  []Condition `json:"filter,omitempty"`
	Keyword string      `json:"keyword,omitempty"`
	Page    *Page       `json:"page,omitempty"`
	Sort    *Sort       `json:"sort,omitempty"`
	Only    []string    `json:"only,omitempty"`
}

// StatQuery asks for aggregates over the schemas matching Filter
type StatQuery struct {
	Filter   []Condition `json:"filter,omitempty"`
	Distinct string      `json:"distinct,omitempty"`
	Count    bool        `json:"count,omitempty"`
}

// Validate checks the query is well formed
func (q Query) Validate() error {
	if err := validateFilter(q.Filter); err != nil {
		return err
	}
	if q.Page != nil && (q.Page.Start < 0 || q.Page.Limit < 0) {
		return fmt.Errorf("%w: page start and limit must not be negative", ErrInvalidQuery)
	}
	if q.Sort != nil && q.Sort.Key == "" {
		return fmt.Errorf("%w: sort key is required", ErrInvalidQuery)
	}
	return nil
}

// Validate checks the stat query is well formed
func (q StatQuery) Validate() error {
	if err := validateFilter(q.Filter); err != nil {
		return err
	}
	if !q.Count && q.Distinct == "" {
		return fmt.Errorf("%w: at least one of count or distinct is required", ErrInvalidQuery)
	}
	return nil
}

func validateFilter(filter []Condition) error {
	for _, c := range filter {
		if c.Key == "" {
			return fmt.Errorf("%w: filter key is required", ErrInvalidQuery)
		}
		switch c.operator() {
		case OpEq, OpNot, OpContain:
		case OpIn:
			if _, ok := c.Value.([]any); !ok {
				return fmt.Errorf("%w: operator in on %q needs a list value", ErrInvalidQuery, c.Key)
			}
		default:
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, c.Operator)
		}
	}
	return nil
}

func (c Condition) operator() Operator {
	if c.Operator == "" {
		return OpEq
	}
	return c.Operator
}
