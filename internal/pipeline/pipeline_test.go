package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/timmy/docpipe/internal/domain"
	"github.com/timmy/docpipe/internal/ocr"
	"github.com/timmy/docpipe/internal/repository"
	"gorm.io/gorm"
)

// fakeStore is an in-memory RecordStore that enforces the same conditional
// write semantics as the real repository.
type fakeStore struct {
	docs map[string]*domain.Document
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]*domain.Document)}
}

func (s *fakeStore) Create(_ context.Context, doc *domain.Document) error {
	cp := *doc
	s.docs[doc.DocumentID] = &cp
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, documentID string) (*domain.Document, error) {
	doc, ok := s.docs[documentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *fakeStore) AdvanceStage(_ context.Context, documentID string, from, to domain.ProcessingStatus, fields map[string]interface{}) error {
	doc, ok := s.docs[documentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if doc.Status != from {
		return repository.ErrStatusConflict
	}
	for k, v := range fields {
		switch k {
		case "extracted_text":
			text := v.(string)
			doc.ExtractedText = &text
		case "ocr_confidence":
			conf := v.(float64)
			doc.OCRConfidence = &conf
		case "classification":
			class := v.(string)
			doc.Classification = &class
		case "summary":
			summary := v.(string)
			doc.Summary = &summary
		}
	}
	doc.Status = to
	return nil
}

type fakeObjects struct {
	data       map[string][]byte
	presignErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{data: make(map[string][]byte)}
}

func (o *fakeObjects) PresignUpload(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if o.presignErr != nil {
		return "", o.presignErr
	}
	return "https://storage.example/" + key + "?signed", nil
}

func (o *fakeObjects) Download(_ context.Context, key string) (io.ReadCloser, error) {
	b, ok := o.data[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (o *fakeObjects) Exists(_ context.Context, key string) (bool, error) {
	_, ok := o.data[key]
	return ok, nil
}

func (o *fakeObjects) Delete(_ context.Context, key string) error {
	delete(o.data, key)
	return nil
}

type fakeExtractor struct {
	fragments []ocr.Fragment
	err       error
	calls     int
}

func (e *fakeExtractor) DetectText(_ context.Context, _ []byte) ([]ocr.Fragment, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.fragments, nil
}

type fakeCompleter struct {
	segments  []string
	err       error
	prompts   []string
	maxTokens []int
}

func (c *fakeCompleter) Complete(_ context.Context, prompt string, maxTokens int) ([]string, error) {
	c.prompts = append(c.prompts, prompt)
	c.maxTokens = append(c.maxTokens, maxTokens)
	if c.err != nil {
		return nil, c.err
	}
	return c.segments, nil
}

type fixture struct {
	svc       *Service
	store     *fakeStore
	objects   *fakeObjects
	extractor *fakeExtractor
	completer *fakeCompleter
}

func newFixture() *fixture {
	store := newFakeStore()
	objects := newFakeObjects()
	extractor := &fakeExtractor{}
	completer := &fakeCompleter{}
	svc := NewService(store, objects, extractor, completer, &Config{
		AllowedTypes: []string{"image/jpeg", "image/png", "application/pdf"},
		UploadURLTTL: time.Hour,
	})
	return &fixture{svc: svc, store: store, objects: objects, extractor: extractor, completer: completer}
}

// upload creates a record and seeds the object store with document bytes.
func (f *fixture) upload(t *testing.T, fileName, fileType string) string {
	t.Helper()
	res, err := f.svc.CreateUpload(context.Background(), &UploadRequest{FileName: fileName, FileType: fileType})
	if err != nil {
		t.Fatalf("CreateUpload: %v", err)
	}
	doc := f.store.docs[res.DocumentID]
	f.objects.data[doc.StorageKey] = []byte("file-bytes")
	return res.DocumentID
}

func TestCreateUploadValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	tests := []struct {
		name string
		req  *UploadRequest
	}{
		{"missing file name", &UploadRequest{FileType: "application/pdf"}},
		{"missing file type", &UploadRequest{FileName: "doc.pdf"}},
		{"disallowed type", &UploadRequest{FileName: "doc.gif", FileType: "image/gif"}},
		{"nil request", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateUpload(ctx, tt.req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}

	if len(f.store.docs) != 0 {
		t.Errorf("expected no records created, found %d", len(f.store.docs))
	}
}

func TestCreateUploadPresignFailure(t *testing.T) {
	f := newFixture()
	f.objects.presignErr = errors.New("signing unavailable")

	_, err := f.svc.CreateUpload(context.Background(), &UploadRequest{FileName: "doc.pdf", FileType: "application/pdf"})
	var cerr *CollaboratorError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	if len(f.store.docs) != 0 {
		t.Error("record must not be created when URL issuance fails")
	}
}

func TestStatusAfterUpload(t *testing.T) {
	f := newFixture()
	id := f.upload(t, "invoice.pdf", "application/pdf")

	view, err := f.svc.Status(context.Background(), id)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	if view.ProcessingStatus != domain.StatusUploaded {
		t.Errorf("status = %s, want UPLOADED", view.ProcessingStatus)
	}
	if view.FileName != "invoice.pdf" {
		t.Errorf("fileName = %q", view.FileName)
	}
	if view.OCRResults != nil || view.Classification != nil || view.Summary != nil {
		t.Error("expected all result fields to be nil before processing")
	}
}

func TestStatusNotFound(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Status(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExtractUnknownDocument(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Extract(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(f.store.docs) != 0 {
		t.Error("extract must not create a record")
	}
}

func TestExtractConfidenceMean(t *testing.T) {
	f := newFixture()
	id := f.upload(t, "doc.png", "image/png")
	f.extractor.fragments = []ocr.Fragment{
		{Text: "A", Confidence: 90},
		{Text: "B", Confidence: 95},
		{Text: "C", Confidence: 100},
	}

	res, err := f.svc.Extract(context.Background(), id)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if res.ExtractedText != "A\nB\nC" {
		t.Errorf("text = %q, want %q", res.ExtractedText, "A\nB\nC")
	}
	if res.Confidence != 95.0 {
		t.Errorf("confidence = %v, want exactly 95.0", res.Confidence)
	}

	doc := f.store.docs[id]
	if doc.Status != domain.StatusOCRComplete {
		t.Errorf("status = %s, want OCR_COMPLETE", doc.Status)
	}
	if !doc.Consistent() {
		t.Error("record inconsistent after extraction")
	}
}

func TestExtractZeroFragments(t *testing.T) {
	f := newFixture()
	id := f.upload(t, "blank.png", "image/png")
	f.extractor.err = ocr.ErrNoText

	_, err := f.svc.Extract(context.Background(), id)
	var cerr *CollaboratorError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	if !errors.Is(err, ocr.ErrNoText) {
		t.Errorf("expected wrapped ErrNoText, got %v", err)
	}

	if f.store.docs[id].Status != domain.StatusUploaded {
		t.Error("record must be unmodified on extraction failure")
	}
}

func TestExtractEngineFailureLeavesRecordUntouched(t *testing.T) {
	f := newFixture()
	id := f.upload(t, "doc.pdf", "application/pdf")
	f.extractor.err = errors.New("engine unavailable")

	if _, err := f.svc.Extract(context.Background(), id); err == nil {
		t.Fatal("expected error")
	}

	doc := f.store.docs[id]
	if doc.Status != domain.StatusUploaded || doc.ExtractedText != nil {
		t.Error("record must be unmodified on engine failure")
	}
}

func TestExtractRerunRejected(t *testing.T) {
	f := newFixture()
	id := f.upload(t, "doc.pdf", "application/pdf")
	f.extractor.fragments = []ocr.Fragment{{Text: "first pass", Confidence: 90}}

	if _, err := f.svc.Extract(context.Background(), id); err != nil {
		t.Fatalf("first Extract: %v", err)
	}

	// Second run would produce different text; the conditional write must
	// reject it rather than clobber the committed result.
	f.extractor.fragments = []ocr.Fragment{{Text: "second pass", Confidence: 10}}
	_, err := f.svc.Extract(context.Background(), id)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	doc := f.store.docs[id]
	if *doc.ExtractedText != "first pass" {
		t.Errorf("committed text clobbered: %q", *doc.ExtractedText)
	}
	if doc.Status != domain.StatusOCRComplete {
		t.Errorf("status = %s, want OCR_COMPLETE", doc.Status)
	}
}

func TestClassifyBeforeExtract(t *testing.T) {
	f := newFixture()
	id := f.upload(t, "doc.pdf", "application/pdf")

	_, err := f.svc.Classify(context.Background(), id)
	var perr *PreconditionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}

	if f.store.docs[id].Status != domain.StatusUploaded {
		t.Error("status must remain UPLOADED after rejected classification")
	}
	if len(f.completer.prompts) != 0 {
		t.Error("model must not be invoked without extracted text")
	}
}

func TestClassifyTrimsFirstSegment(t *testing.T) {
	f := newFixture()
	id := f.upload(t, "doc.pdf", "application/pdf")
	f.extractor.fragments = []ocr.Fragment{{Text: "Invoice #1234", Confidence: 99}}
	if _, err := f.svc.Extract(context.Background(), id); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	f.completer.segments = []string{"  Invoice \n", "ignored second segment"}
	label, err := f.svc.Classify(context.Background(), id)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if label != "Invoice" {
		t.Errorf("label = %q, want %q", label, "Invoice")
	}
	if len(f.completer.prompts) != 1 || !strings.Contains(f.completer.prompts[0], "Invoice #1234") {
		t.Errorf("prompt missing extracted text: %v", f.completer.prompts)
	}
	if f.completer.maxTokens[0] != 100 {
		t.Errorf("classify max tokens = %d, want 100", f.completer.maxTokens[0])
	}
}

func TestSummarizeRequiresClassifiedStatus(t *testing.T) {
	f := newFixture()
	id := f.upload(t, "doc.pdf", "application/pdf")
	f.extractor.fragments = []ocr.Fragment{{Text: "text", Confidence: 90}}
	if _, err := f.svc.Extract(context.Background(), id); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	// Extraction is present but classification has not run; the conditional
	// write from CLASSIFIED must reject the out-of-order summarize.
	f.completer.segments = []string{"a summary"}
	_, err := f.svc.Summarize(context.Background(), id)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if f.store.docs[id].Status != domain.StatusOCRComplete {
		t.Error("status must remain OCR_COMPLETE")
	}
}

func TestEndToEndInvoice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	id := f.upload(t, "invoice.pdf", "application/pdf")
	f.extractor.fragments = []ocr.Fragment{
		{Text: "Invoice #1234", Confidence: 98},
		{Text: "Total: $99.00", Confidence: 96},
	}

	statuses := []domain.ProcessingStatus{}
	record := func() {
		view, err := f.svc.Status(ctx, id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		statuses = append(statuses, view.ProcessingStatus)
	}

	record()

	res, err := f.svc.Extract(ctx, id)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(res.ExtractedText, "Invoice #1234") {
		t.Errorf("extracted text missing invoice number: %q", res.ExtractedText)
	}
	record()

	f.completer.segments = []string{"Invoice"}
	label, err := f.svc.Classify(ctx, id)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if label != "Invoice" {
		t.Errorf("label = %q", label)
	}
	record()

	f.completer.segments = []string{"An invoice for $99.00."}
	summary, err := f.svc.Summarize(ctx, id)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary == "" {
		t.Error("expected non-empty summary")
	}
	record()

	// Observed statuses must be exactly the forward sequence
	want := []domain.ProcessingStatus{
		domain.StatusUploaded,
		domain.StatusOCRComplete,
		domain.StatusClassified,
		domain.StatusComplete,
	}
	for i, st := range statuses {
		if st != want[i] {
			t.Errorf("status[%d] = %s, want %s", i, st, want[i])
		}
	}

	view, err := f.svc.Status(ctx, id)
	if err != nil {
		t.Fatalf("final Status: %v", err)
	}
	if view.ProcessingStatus != domain.StatusComplete {
		t.Errorf("final status = %s", view.ProcessingStatus)
	}
	if view.OCRResults == nil || view.Classification == nil || view.Summary == nil {
		t.Error("expected all result fields populated at COMPLETE")
	}
}

func TestModelFailureLeavesRecordUntouched(t *testing.T) {
	f := newFixture()
	id := f.upload(t, "doc.pdf", "application/pdf")
	f.extractor.fragments = []ocr.Fragment{{Text: "text", Confidence: 90}}
	if _, err := f.svc.Extract(context.Background(), id); err != nil {
		t.Fatalf("Extract: %v", err)
	}

	f.completer.err = errors.New("model timeout")
	_, err := f.svc.Classify(context.Background(), id)
	var cerr *CollaboratorError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}

	doc := f.store.docs[id]
	if doc.Status != domain.StatusOCRComplete || doc.Classification != nil {
		t.Error("record must be unmodified on model failure")
	}
}
