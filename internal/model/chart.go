// Package model defines the core data types for the chart service.
// In Go, we use structs instead of classes. Struct tags (the `json:"..."` and
// `db:"..."` annotations) tell serialization libraries how to map fields.
package model

import "time"

// Chart is the main domain entity: one cached chart image per symbol.
// Each field has two tags:
//   - `db:"column_name"` — used by sqlx to scan database rows
//   - `json:"field_name"` — used for JSON serialization (API responses)
//
// The image bytes are never exposed over JSON; responses carry metadata
// and the PNG itself is served with an image/png content type.
type Chart struct {
	ID        int64     `db:"id" json:"id"`
	Symbol    string    `db:"symbol" json:"symbol"`
	Image     []byte    `db:"image" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ChartInfo is a Chart without its image bytes — what listings return.
type ChartInfo struct {
	Symbol    string    `db:"symbol" json:"symbol"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PutResult reports what a store upsert did.
type PutResult string

const (
	PutInserted PutResult = "inserted"
	PutUpdated  PutResult = "updated"
)

// BatchOutcome is the per-symbol result of a batch fetch. A batch request
// yields exactly one outcome per input symbol, in input order, regardless
// of how the other symbols fared.
type BatchOutcome struct {
	Symbol    string    `json:"symbol"`
	OK        bool      `json:"ok"`
	Committed PutResult `json:"committed,omitempty"`
	Error     string    `json:"error,omitempty"`
}
