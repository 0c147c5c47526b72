package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/timmy/docpipe/internal/domain"
	"gorm.io/gorm"
)

// ErrStatusConflict is returned when a conditional stage update finds the
// record's status has moved past the expected predecessor since it was read.
// The write is rejected rather than silently overwriting the newer result.
var ErrStatusConflict = errors.New("document status changed since read")

// DocumentRepository handles document record persistence.
type DocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new DocumentRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *DocumentRepository: repository instance bound to db.
func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - doc: document record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByID retrieves a document by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document ID.
// Returns:
//   - *domain.Document: document record if found.
//   - error: gorm.ErrRecordNotFound if absent, other non-nil on failure.
func (r *DocumentRepository) GetByID(ctx context.Context, documentID string) (*domain.Document, error) {
	var doc domain.Document
	if err := r.db.WithContext(ctx).First(&doc, "document_id = ?", documentID).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// Exists checks whether a document record exists.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document ID.
// Returns:
//   - bool: true if a record exists.
//   - error: non-nil if the lookup fails.
func (r *DocumentRepository) Exists(ctx context.Context, documentID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("document_id = ?", documentID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// AdvanceStage atomically writes a stage's result fields and advances the
// processing status, conditioned on the record still being at the expected
// prior status. The WHERE clause makes the read-modify-write race explicit:
// if another invocation advanced the record first, zero rows match and the
// write is rejected with ErrStatusConflict instead of last-writer-wins.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - documentID: document ID.
//   - from: status the record must still hold for the write to apply.
//   - to: status to advance to.
//   - fields: stage result columns to set alongside the status.
// Returns:
//   - error: gorm.ErrRecordNotFound if the record does not exist,
//     ErrStatusConflict if the status no longer matches, other non-nil on
//     database failure.
func (r *DocumentRepository) AdvanceStage(ctx context.Context, documentID string, from, to domain.ProcessingStatus, fields map[string]interface{}) error {
	if !domain.CanTransition(from, to) {
		return fmt.Errorf("invalid status transition %s -> %s", from, to)
	}

	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["processing_status"] = to

	res := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("document_id = ? AND processing_status = ?", documentID, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		exists, err := r.Exists(ctx, documentID)
		if err != nil {
			return err
		}
		if !exists {
			return gorm.ErrRecordNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

// ListByStatus retrieves documents by status with pagination.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: processing status to filter by.
//   - limit: maximum number of records to return.
//   - offset: number of records to skip.
// Returns:
//   - []domain.Document: matching document records.
//   - error: non-nil if the query fails.
func (r *DocumentRepository) ListByStatus(ctx context.Context, status domain.ProcessingStatus, limit, offset int) ([]domain.Document, error) {
	var docs []domain.Document
	if err := r.db.WithContext(ctx).
		Where("processing_status = ?", status).
		Limit(limit).
		Offset(offset).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// CountByStatus counts documents by status.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - status: processing status to count.
// Returns:
//   - int64: number of matching records.
//   - error: non-nil if the query fails.
func (r *DocumentRepository) CountByStatus(ctx context.Context, status domain.ProcessingStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Document{}).
		Where("processing_status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
