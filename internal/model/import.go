package model

// RejectReason classifies why an imported row was not added.
type RejectReason string

const (
	RejectUnknownMajor RejectReason = "UNKNOWN_MAJOR"
	RejectDuplicateID  RejectReason = "DUPLICATE_ID"
	RejectValidation   RejectReason = "VALIDATION_FAILED"
)

// RejectedRow describes one CSV row the importer refused.
type RejectedRow struct {
	Line    int          `json:"line"`
	Raw     string       `json:"raw"`
	Reason  RejectReason `json:"reason"`
	Field   string       `json:"field,omitempty"`
	Message string       `json:"message"`
}

// ImportReport summarizes a bulk import. Rejected holds at most a bounded
// number of examples; RejectedCount counts all of them.
type ImportReport struct {
	Added         int           `json:"added_count"`
	RejectedCount int           `json:"rejected_count"`
	Skipped       int           `json:"skipped_count"`
	Rejected      []RejectedRow `json:"rejected_rows"`
}
