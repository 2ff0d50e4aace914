package schema

import (
	"fmt"
	"slices"
)

// SortRecords orders records in place the way List orders a single repository
func SortRecords(records []Record, s *Sort) error {
	if s == nil || len(records) < 2 {
		return nil
	}

	docs := make([]document, len(records))
	for i, rec := range records {
		doc, err := newDocument(rec)
		if err != nil {
			return fmt.Errorf("encoding schema %s: %w", rec.SchemaID, err)
		}
		docs[i] = doc
	}

	slices.SortStableFunc(docs, func(a, b document) int {
		c := compareResults(a.get(s.Key), b.get(s.Key))
		if s.Desc {
			return -c
		}
		return c
	})
	for i, d := range docs {
		records[i] = d.rec
	}
	return nil
}

// PageRecords returns the window of records selected by p
func PageRecords(records []Record, p *Page) []Record {
	start, end := window(len(records), p)
	return records[start:end]
}

func window(n int, p *Page) (int, int) {
	if p == nil {
		return 0, n
	}
	start := min(p.Start, n)
	end := n
	if p.Limit > 0 {
		end = min(start+p.Limit, n)
	}
	return start, end
}
