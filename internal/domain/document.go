package domain

import "time"

// ProcessingStatus represents the pipeline position of a document record.
// Values advance monotonically: UPLOADED → OCR_COMPLETE → CLASSIFIED → COMPLETE.
type ProcessingStatus string

const (
	StatusUploaded    ProcessingStatus = "UPLOADED"
	StatusOCRComplete ProcessingStatus = "OCR_COMPLETE"
	StatusClassified  ProcessingStatus = "CLASSIFIED"
	StatusComplete    ProcessingStatus = "COMPLETE"
)

// transitions is the single allowed-transition table for processing status.
// Every stage write goes through CanTransition; there is no other path that
// mutates processing_status.
var transitions = map[ProcessingStatus]ProcessingStatus{
	StatusUploaded:    StatusOCRComplete,
	StatusOCRComplete: StatusClassified,
	StatusClassified:  StatusComplete,
}

// CanTransition reports whether moving from one status to the next is allowed.
// Parameters:
//   - from: current record status.
//   - to: proposed next status.
// Returns:
//   - bool: true if the transition is a single forward step.
func CanTransition(from, to ProcessingStatus) bool {
	next, ok := transitions[from]
	return ok && next == to
}

// Next returns the successor status, or the empty status for COMPLETE.
func Next(from ProcessingStatus) (ProcessingStatus, bool) {
	next, ok := transitions[from]
	return next, ok
}

// Document represents a single uploaded document tracked across the
// extraction, classification, and summarization stages. One record per
// document; documentId is the only key used to address it.
//
// Identity and storage fields are set at creation and never change. Each
// result field is written exactly once by its stage; ProcessingStatus is
// advanced in the same write.
type Document struct {
	DocumentID      string           `gorm:"type:text;primaryKey;column:document_id" json:"documentId"`
	FileName        string           `gorm:"type:text;not null" json:"fileName"`
	FileType        string           `gorm:"type:text;not null" json:"fileType"`
	StorageKey      string           `gorm:"type:text;not null" json:"storageKey"`
	UploadTimestamp time.Time        `json:"uploadTimestamp"`
	Status          ProcessingStatus `gorm:"type:text;index:idx_documents_status;default:UPLOADED;column:processing_status" json:"processingStatus"`
	ExtractedText   *string          `gorm:"type:text" json:"extractedText,omitempty"`
	OCRConfidence   *float64         `json:"ocrConfidence,omitempty"`
	Classification  *string          `gorm:"type:text" json:"classification,omitempty"`
	Summary         *string          `gorm:"type:text" json:"summary,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// TableName returns the database table name for Document.
func (Document) TableName() string {
	return "documents"
}

// ExtractionResult is the output of the text extraction stage.
type ExtractionResult struct {
	ExtractedText string  `json:"extractedText"`
	Confidence    float64 `json:"confidence"`
}

// HasExtraction reports whether the extraction stage has completed for this
// record. Classification and summarization require it.
func (d *Document) HasExtraction() bool {
	return d.ExtractedText != nil && d.OCRConfidence != nil
}

// Extraction returns the extraction result, or nil if the stage has not run.
func (d *Document) Extraction() *ExtractionResult {
	if !d.HasExtraction() {
		return nil
	}
	return &ExtractionResult{
		ExtractedText: *d.ExtractedText,
		Confidence:    *d.OCRConfidence,
	}
}

// Consistent verifies that the status label agrees with the populated result
// fields. Used as a write-time guard so a record can never claim a stage it
// has no data for.
func (d *Document) Consistent() bool {
	switch d.Status {
	case StatusUploaded:
		return true
	case StatusOCRComplete:
		return d.HasExtraction()
	case StatusClassified:
		return d.HasExtraction() && d.Classification != nil
	case StatusComplete:
		return d.HasExtraction() && d.Classification != nil && d.Summary != nil
	default:
		return false
	}
}
