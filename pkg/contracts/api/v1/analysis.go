// Package v1 defines the request and response contracts of the analysis
// HTTP API.
package v1

import "mdacli/pkg/contracts/domain"

// ImportRequest selects the folder to ingest as one batch.
type ImportRequest struct {
	Path string `json:"path"`
}

// ItemListResponse wraps the item listing.
type ItemListResponse struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

// RecordsResponse wraps one item's record listing.
type RecordsResponse struct {
	ItemName string                     `json:"item_name"`
	Records  []domain.MeasurementRecord `json:"records"`
	Count    int                        `json:"count"`
}

// ResetResponse acknowledges a session reset.
type ResetResponse struct {
	Success bool `json:"success"`
}
