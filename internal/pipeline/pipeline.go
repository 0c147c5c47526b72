// Package pipeline implements the document processing orchestrator: upload
// intake, the extraction/classification/summarization stages, and the status
// projection. Each stage is a read-modify-write over exactly one document
// record. The slow collaborator call happens between read and write with no
// lock held; the write is conditioned on the record's expected prior status
// so a lost race surfaces as ErrConflict instead of a silent overwrite.
package pipeline

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/docpipe/internal/domain"
	"github.com/timmy/docpipe/internal/logger"
	"github.com/timmy/docpipe/internal/ocr"
	"github.com/timmy/docpipe/internal/prompts"
	"github.com/timmy/docpipe/internal/repository"
	"github.com/timmy/docpipe/internal/storage"
	"gorm.io/gorm"
)

// RecordStore is the record persistence surface the orchestrator needs.
// Implemented by repository.DocumentRepository.
type RecordStore interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, documentID string) (*domain.Document, error)
	AdvanceStage(ctx context.Context, documentID string, from, to domain.ProcessingStatus, fields map[string]interface{}) error
}

// Extractor is the text-extraction collaborator.
// Implemented by ocr.TextractClient.
type Extractor interface {
	DetectText(ctx context.Context, document []byte) ([]ocr.Fragment, error)
}

// Completer is the language-model collaborator.
// Implemented by llm.Client.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) ([]string, error)
}

// Config holds orchestrator configuration.
type Config struct {
	AllowedTypes   []string
	UploadURLTTL   time.Duration
	StorageTimeout time.Duration
	OCRTimeout     time.Duration
	LLMTimeout     time.Duration
}

// Service coordinates the document processing stages. Control flow is
// externally driven: the caller invokes each stage as a separate request,
// and the service never schedules the next stage itself.
type Service struct {
	records   RecordStore
	objects   storage.ObjectStorage
	extractor Extractor
	completer Completer
	cfg       *Config
}

// NewService creates a new pipeline service.
// Parameters:
//   - records: document record store.
//   - objects: object storage for uploaded bytes.
//   - extractor: text-extraction collaborator.
//   - completer: language-model collaborator.
//   - cfg: orchestrator configuration.
// Returns:
//   - *Service: initialized service.
func NewService(records RecordStore, objects storage.ObjectStorage, extractor Extractor, completer Completer, cfg *Config) *Service {
	return &Service{
		records:   records,
		objects:   objects,
		extractor: extractor,
		completer: completer,
		cfg:       cfg,
	}
}

// withTimeout bounds a collaborator call; zero duration means no extra bound.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// mapRecordErr translates record-store errors into pipeline errors.
func mapRecordErr(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrStatusConflict):
		return ErrConflict
	default:
		return err
	}
}

// UploadRequest is the upload intake input.
type UploadRequest struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
}

// UploadResult is the upload intake output.
type UploadResult struct {
	DocumentID string `json:"documentId"`
	UploadURL  string `json:"uploadUrl"`
}

// CreateUpload validates the request, issues a presigned upload URL scoped
// to the new document's object key, and creates the initial record with
// status UPLOADED. URL issuance and record creation are not transactional;
// a failed record insert after a successful presign leaves no record behind
// and the URL simply expires unused.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - req: upload intake request.
// Returns:
//   - *UploadResult: document ID and time-boxed upload URL.
//   - error: *ValidationError for bad input, *CollaboratorError if the URL
//     cannot be issued, other non-nil if the record insert fails.
func (s *Service) CreateUpload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if req == nil || req.FileName == "" || req.FileType == "" {
		return nil, NewValidationError("fileName and fileType are required")
	}
	if !slices.Contains(s.cfg.AllowedTypes, req.FileType) {
		return nil, NewValidationError("unsupported file type %q", req.FileType)
	}

	documentID := uuid.New().String()
	key := storage.ObjectKey(documentID, req.FileType)

	sctx, cancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer cancel()
	uploadURL, err := s.objects.PresignUpload(sctx, key, req.FileType, s.cfg.UploadURLTTL)
	if err != nil {
		return nil, &CollaboratorError{Collaborator: "object store", Err: err}
	}

	doc := &domain.Document{
		DocumentID:      documentID,
		FileName:        req.FileName,
		FileType:        req.FileType,
		StorageKey:      key,
		UploadTimestamp: time.Now().UTC(),
		Status:          domain.StatusUploaded,
	}
	if err := s.records.Create(ctx, doc); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{logger.FieldStage: "upload"}).
		Info(ctx, "Created document record: document_id=%s, file=%s", documentID, req.FileName)

	return &UploadResult{DocumentID: documentID, UploadURL: uploadURL}, nil
}

// Extract runs the text extraction stage: fetch the stored bytes, detect
// text, and advance the record from UPLOADED to OCR_COMPLETE with the joined
// text and mean confidence. Re-invocation after the stage completed is
// rejected with ErrConflict; the pipeline is forward-only.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document to extract.
// Returns:
//   - *domain.ExtractionResult: extracted text and mean confidence.
//   - error: ErrNotFound, ErrConflict, *CollaboratorError, or other non-nil.
func (s *Service) Extract(ctx context.Context, documentID string) (*domain.ExtractionResult, error) {
	start := time.Now()

	doc, err := s.records.GetByID(ctx, documentID)
	if err != nil {
		return nil, mapRecordErr(err)
	}

	sctx, scancel := withTimeout(ctx, s.cfg.StorageTimeout)
	defer scancel()
	body, err := s.objects.Download(sctx, doc.StorageKey)
	if err != nil {
		return nil, &CollaboratorError{Collaborator: "object store", Err: err}
	}
	documentBytes, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		return nil, &CollaboratorError{Collaborator: "object store", Err: err}
	}

	octx, ocancel := withTimeout(ctx, s.cfg.OCRTimeout)
	defer ocancel()
	fragments, err := s.extractor.DetectText(octx, documentBytes)
	if err != nil {
		return nil, &CollaboratorError{Collaborator: "extraction engine", Err: err}
	}

	result := &domain.ExtractionResult{
		ExtractedText: ocr.JoinText(fragments),
		Confidence:    ocr.MeanConfidence(fragments),
	}

	err = s.records.AdvanceStage(ctx, documentID, domain.StatusUploaded, domain.StatusOCRComplete, map[string]interface{}{
		"extracted_text": result.ExtractedText,
		"ocr_confidence": result.Confidence,
	})
	if err != nil {
		return nil, mapRecordErr(err)
	}

	logger.With(logger.Fields{
		logger.FieldStage:      "ocr",
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Extraction complete: document_id=%s, lines=%d, confidence=%.1f",
		documentID, len(fragments), result.Confidence)

	return result, nil
}

// Classify runs the classification stage: build the category prompt from the
// extracted text, take the model's first response segment verbatim (trimmed),
// and advance OCR_COMPLETE to CLASSIFIED.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document to classify.
// Returns:
//   - string: category label.
//   - error: ErrNotFound, ErrConflict, *PreconditionError,
//     *CollaboratorError, or other non-nil.
func (s *Service) Classify(ctx context.Context, documentID string) (string, error) {
	start := time.Now()

	doc, err := s.records.GetByID(ctx, documentID)
	if err != nil {
		return "", mapRecordErr(err)
	}
	if !doc.HasExtraction() {
		return "", &PreconditionError{Stage: "classification", Missing: "text extraction"}
	}

	lctx, cancel := withTimeout(ctx, s.cfg.LLMTimeout)
	defer cancel()
	segments, err := s.completer.Complete(lctx, prompts.Classification(*doc.ExtractedText), prompts.ClassifyMaxTokens)
	if err != nil {
		return "", &CollaboratorError{Collaborator: "language model", Err: err}
	}
	classification := strings.TrimSpace(segments[0])

	err = s.records.AdvanceStage(ctx, documentID, domain.StatusOCRComplete, domain.StatusClassified, map[string]interface{}{
		"classification": classification,
	})
	if err != nil {
		return "", mapRecordErr(err)
	}

	logger.With(logger.Fields{
		logger.FieldStage:      "classify",
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Classification complete: document_id=%s, category=%s", documentID, classification)

	return classification, nil
}

// Summarize runs the summarization stage: prompt for a concise summary of
// the extracted text and advance CLASSIFIED to COMPLETE.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document to summarize.
// Returns:
//   - string: prose summary.
//   - error: ErrNotFound, ErrConflict, *PreconditionError,
//     *CollaboratorError, or other non-nil.
func (s *Service) Summarize(ctx context.Context, documentID string) (string, error) {
	start := time.Now()

	doc, err := s.records.GetByID(ctx, documentID)
	if err != nil {
		return "", mapRecordErr(err)
	}
	if !doc.HasExtraction() {
		return "", &PreconditionError{Stage: "summarization", Missing: "text extraction"}
	}

	lctx, cancel := withTimeout(ctx, s.cfg.LLMTimeout)
	defer cancel()
	segments, err := s.completer.Complete(lctx, prompts.Summarization(*doc.ExtractedText), prompts.SummarizeMaxTokens)
	if err != nil {
		return "", &CollaboratorError{Collaborator: "language model", Err: err}
	}
	summary := strings.TrimSpace(segments[0])

	err = s.records.AdvanceStage(ctx, documentID, domain.StatusClassified, domain.StatusComplete, map[string]interface{}{
		"summary": summary,
	})
	if err != nil {
		return "", mapRecordErr(err)
	}

	logger.With(logger.Fields{
		logger.FieldStage:      "summarize",
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Summarization complete: document_id=%s", documentID)

	return summary, nil
}

// StatusView is the client-facing projection of a document record. Result
// fields are present-but-null until their stage completes, so a poller can
// tell "not yet processed" from "does not exist".
type StatusView struct {
	DocumentID       string                   `json:"documentId"`
	FileName         string                   `json:"fileName"`
	ProcessingStatus domain.ProcessingStatus  `json:"processingStatus"`
	OCRResults       *domain.ExtractionResult `json:"ocrResults"`
	Classification   *string                  `json:"classification"`
	Summary          *string                  `json:"summary"`
}

// Status returns the projection of a document record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document to report.
// Returns:
//   - *StatusView: record projection.
//   - error: ErrNotFound if no record exists, other non-nil on failure.
func (s *Service) Status(ctx context.Context, documentID string) (*StatusView, error) {
	doc, err := s.records.GetByID(ctx, documentID)
	if err != nil {
		return nil, mapRecordErr(err)
	}

	return &StatusView{
		DocumentID:       doc.DocumentID,
		FileName:         doc.FileName,
		ProcessingStatus: doc.Status,
		OCRResults:       doc.Extraction(),
		Classification:   doc.Classification,
		Summary:          doc.Summary,
	}, nil
}
