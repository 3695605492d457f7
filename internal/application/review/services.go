package review

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jingelab/pathreview/internal/application"
	domain "github.com/jingelab/pathreview/internal/domain/review"
)

// StagingReclaimer accepts staged-file paths for best-effort removal after
// they are no longer needed.
type StagingReclaimer interface {
	Enqueue(path string)
}

// Service implements the review use-cases: list documents, fetch their
// artifacts, and fold-and-persist reviewer annotations.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Store      domain.ArtifactStore
	Locator    *domain.Locator
	Reclaimer  StagingReclaimer
	Clock      application.Clock
	StagingDir string
	PDFSuffix  string
	Timeout    time.Duration
}

// SaveCommand carries a save submission in either wire shape. The viewer
// posts an annotations list; the indicators map is the alternate form.
type SaveCommand struct {
	Filename    string                          `json:"filename"`
	Annotations []domain.AnnotationEntry        `json:"annotations"`
	Indicators  map[string]domain.IndicatorEdit `json:"indicators"`
}

type SaveResult struct {
	Message string    `json:"message"`
	SavedAt time.Time `json:"saved_at"`
}

// PDFInfo summarizes a document without the client opening it.
type PDFInfo struct {
	Filename  string `json:"filename"`
	Pages     int    `json:"pages"`
	SizeBytes int64  `json:"size_bytes"`
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// ListDocuments returns the names of every document with a PDF artifact,
// sorted. The suffix match is case-sensitive: the store names its PDFs with
// a fixed suffix and anything else under the prefix is not a document.
func (s *Service) ListDocuments(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	keys, err := s.Store.List(ctx, s.Locator.PDFPrefix())
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasSuffix(key, s.PDFSuffix) {
			names = append(names, path.Base(key))
		}
	}
	sort.Strings(names)
	return names, nil
}

// StagePDF makes a document's PDF available as a local file.
func (s *Service) StagePDF(ctx context.Context, filename string) (domain.Staged, error) {
	return s.stage(ctx, domain.KindPDF, filename)
}

// StageOCR makes a document's OCR text available as a local file.
func (s *Service) StageOCR(ctx context.Context, filename string) (domain.Staged, error) {
	return s.stage(ctx, domain.KindOCR, filename)
}

func (s *Service) stage(ctx context.Context, kind domain.ArtifactKind, filename string) (domain.Staged, error) {
	key, err := s.Locator.Key(kind, filename)
	if err != nil {
		return domain.Staged{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.Store.Stage(ctx, key, s.StagingDir)
}

// Indicators fetches a document's indicator record, parsed and re-serialized.
// A stored blob that is not valid JSON is a malformed artifact, not a crash.
func (s *Service) Indicators(ctx context.Context, filename string) ([]byte, error) {
	key, err := s.Locator.Key(domain.KindIndicators, filename)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	rec, err := domain.ParseIndicatorRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: indicator blob %s: %v", domain.ErrMalformed, key, err)
	}
	return rec.Encode()
}

// LoadComments fetches the previously saved annotated record. ErrNotFound is
// the common case for a document nobody has annotated yet.
func (s *Service) LoadComments(ctx context.Context, filename string) ([]byte, error) {
	key, err := s.Locator.Key(domain.KindAnnotated, filename)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	data, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	rec, err := domain.ParseIndicatorRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: annotated blob %s: %v", domain.ErrMalformed, key, err)
	}
	return rec.Encode()
}

// Save folds the submitted comments into the prior state for the document
// and atomically replaces its annotated record. Fold base is the previous
// annotated output when one exists, else the pristine indicator record.
// Submitted values are ignored; only comments are taken from the client.
func (s *Service) Save(ctx context.Context, cmd SaveCommand) (SaveResult, error) {
	if cmd.Filename == "" {
		return SaveResult{}, fmt.Errorf("%w: filename is required", domain.ErrMalformed)
	}

	comments := domain.NormalizeAnnotations(cmd.Annotations)
	for name, comment := range domain.NormalizeEdits(cmd.Indicators) {
		comments[name] = comment
	}

	annotatedKey, err := s.Locator.Key(domain.KindAnnotated, cmd.Filename)
	if err != nil {
		return SaveResult{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	base, err := s.foldBase(ctx, annotatedKey, cmd.Filename)
	if err != nil {
		return SaveResult{}, err
	}

	merged := domain.Fold(base, comments)
	data, err := merged.Encode()
	if err != nil {
		return SaveResult{}, err
	}

	if err := s.Store.Put(ctx, annotatedKey, data, "application/json"); err != nil {
		return SaveResult{}, err
	}

	return SaveResult{Message: "File saved successfully", SavedAt: s.now()}, nil
}

func (s *Service) foldBase(ctx context.Context, annotatedKey, filename string) (domain.IndicatorRecord, error) {
	data, err := s.Store.Get(ctx, annotatedKey)
	if err == nil {
		rec, perr := domain.ParseIndicatorRecord(data)
		if perr != nil {
			return nil, fmt.Errorf("annotated blob %s is unreadable: %w", annotatedKey, perr)
		}
		return rec, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	key, err := s.Locator.Key(domain.KindIndicators, filename)
	if err != nil {
		return nil, err
	}
	data, err = s.Store.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: no indicator record for %s", domain.ErrPriorStateMissing, filename)
		}
		return nil, err
	}
	rec, err := domain.ParseIndicatorRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: indicator blob %s: %v", domain.ErrMalformed, key, err)
	}
	return rec, nil
}

// Info stages the PDF and reports its page count and size.
func (s *Service) Info(ctx context.Context, filename string) (PDFInfo, error) {
	staged, err := s.StagePDF(ctx, filename)
	if err != nil {
		return PDFInfo{}, err
	}
	if staged.Transient {
		defer s.release(staged.Path)
	}

	fi, err := os.Stat(staged.Path)
	if err != nil {
		return PDFInfo{}, err
	}
	pages, err := api.PageCountFile(staged.Path)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("%w: pdf blob %s: %v", domain.ErrMalformed, filename, err)
	}

	return PDFInfo{Filename: filename, Pages: pages, SizeBytes: fi.Size()}, nil
}

func (s *Service) release(path string) {
	if s.Reclaimer != nil {
		s.Reclaimer.Enqueue(path)
		return
	}
	os.Remove(path)
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
