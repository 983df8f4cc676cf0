package domain

import "time"

// ============================================================
// Financial records
// ============================================================

// SourceType tags how a record entered the system.
type SourceType string

const (
	SourceCSV    SourceType = "csv"
	SourceExcel  SourceType = "excel"
	SourceJSON   SourceType = "json"
	SourceManual SourceType = "manual"
)

// DefaultCategory is applied when a row carries no category.
const DefaultCategory = "Other"

// ManualEntryLabel is the source label stamped on form-entered records.
const ManualEntryLabel = "Manual Entry"

// RawRow is one loosely-typed row as produced by a format parser.
// Values are strings, json.Number, float64, bool or nil. It never leaves
// the ingestion pipeline: the normalizer turns it into a FinancialRecord.
type RawRow map[string]any

// Provenance records where a batch of rows came from.
type Provenance struct {
	SourceType  SourceType
	SourceLabel string
}

// FinancialRecord is the canonical, persisted sales record.
type FinancialRecord struct {
	ID          string     `json:"id" bson:"_id"`
	OwnerID     string     `json:"ownerId" bson:"owner_id"`
	Date        time.Time  `json:"date" bson:"date"`
	Product     string     `json:"product" bson:"product"`
	Quantity    float64    `json:"quantity" bson:"quantity"`
	Price       float64    `json:"price" bson:"price"`
	Total       float64    `json:"total" bson:"total"`
	Category    string     `json:"category" bson:"category"`
	SourceType  SourceType `json:"fileType" bson:"source_type"`
	SourceLabel string     `json:"filename" bson:"source_label"`
	CreatedAt   time.Time  `json:"createdAt" bson:"created_at"`
}

// ============================================================
// Ingestion API types
// ============================================================

// UploadResult is returned by POST /v1/data/upload.
type UploadResult struct {
	OwnerID  string `json:"userId"`
	Filename string `json:"filename"`
	FileType string `json:"fileType"`
	Count    int    `json:"count"`
	Message  string `json:"message"`
}

// ManualEntryRequest is the body of POST /v1/data/manual.
type ManualEntryRequest struct {
	Data []RawRow `json:"data"`
}

// ManualEntryResult is returned by POST /v1/data/manual.
type ManualEntryResult struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}
