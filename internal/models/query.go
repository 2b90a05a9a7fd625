package models

import "time"

// Extraction is one recorded run of the form field extractor.
type Extraction struct {
	ID         string    `json:"id" db:"id"`
	Bucket     string    `json:"bucket" db:"bucket"`
	Key        string    `json:"key" db:"document_key"`
	Provider   string    `json:"provider" db:"provider"`
	BlockCount int       `json:"block_count" db:"block_count"`
	Fields     *Fields   `json:"fields" db:"fields"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ExtractionListQuery pages through recorded extractions.
type ExtractionListQuery struct {
	Offset int `json:"offset,omitempty"`
	Limit  int `json:"limit,omitempty"`
}

// Normalize clamps offset and limit: negative offsets become 0, limit defaults to 20 and is capped at 100.
func (q *ExtractionListQuery) Normalize() {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
}

// ExtractionList is a page of extractions plus the total count.
type ExtractionList struct {
	Extractions []*Extraction `json:"extractions"`
	Total       int64         `json:"total"`
	Offset      int           `json:"offset"`
	Limit       int           `json:"limit"`
}
