package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	appreview "github.com/jingelab/pathreview/internal/application/review"
	domain "github.com/jingelab/pathreview/internal/domain/review"
	"github.com/jingelab/pathreview/internal/middleware"
	"github.com/jingelab/pathreview/web"
)

type Router struct {
	svc     *appreview.Service
	cleaner appreview.StagingReclaimer
}

func NewRouter(svc *appreview.Service, cleaner appreview.StagingReclaimer, checkers map[string]middleware.HealthChecker) http.Handler {
	r := &Router{svc: svc, cleaner: cleaner}
	mux := chi.NewRouter()

	mux.Get("/health", middleware.HealthHandler(checkers))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Get("/", r.handleIndex)
	mux.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.Assets()))))

	mux.Get("/pdf-files", r.wrap(r.handleListPDFFiles))
	mux.Get("/pdf/{filename}", r.wrap(r.handlePDF))
	mux.Get("/ocr/{filename}", r.wrap(r.handleOCR))
	mux.Get("/indicators/{filename}", r.wrap(r.handleIndicators))
	mux.Get("/pdf-info/{filename}", r.wrap(r.handleInfo))
	mux.Get("/load-comments/{filename}", r.wrap(r.handleLoadComments))
	mux.Post("/save-edited-pi", r.wrap(r.handleSave))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap converts handler errors into the JSON {error} body with the status
// the failure taxonomy calls for. Not-found and malformed conditions get
// distinct signals instead of the catch-all 500.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, domain.ErrMalformed):
			writeError(w, http.StatusBadRequest, err)
		case errors.Is(err, domain.ErrPriorStateMissing):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// GET /
func (r *Router) handleIndex(w http.ResponseWriter, req *http.Request) {
	data, err := fs.ReadFile(web.Assets(), "index.html")
	if err != nil {
		http.Error(w, "review UI unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// GET /pdf-files
func (r *Router) handleListPDFFiles(w http.ResponseWriter, req *http.Request) error {
	names, err := r.svc.ListDocuments(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, names)
}

// GET /pdf/{filename}
func (r *Router) handlePDF(w http.ResponseWriter, req *http.Request) error {
	return r.serveStaged(w, req, r.svc.StagePDF, "application/pdf")
}

// GET /ocr/{filename}
func (r *Router) handleOCR(w http.ResponseWriter, req *http.Request) error {
	return r.serveStaged(w, req, r.svc.StageOCR, "text/plain; charset=utf-8")
}

type stageFunc func(ctx context.Context, filename string) (domain.Staged, error)

// serveStaged streams a staged artifact inline and reclaims the transient
// copy only after ServeFile has returned, i.e. after the response body has
// been fully written.
func (r *Router) serveStaged(w http.ResponseWriter, req *http.Request, stage stageFunc, contentType string) error {
	filename, err := pathFilename(req)
	if err != nil {
		return err
	}
	staged, err := stage(req.Context(), filename)
	if err != nil {
		return err
	}
	middleware.IncrementArtifactsFetched()
	if staged.Transient {
		middleware.IncrementArtifactsStaged()
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "inline")
	http.ServeFile(w, req, staged.Path)
	if staged.Transient && r.cleaner != nil {
		r.cleaner.Enqueue(staged.Path)
	}
	return nil
}

// GET /indicators/{filename}
func (r *Router) handleIndicators(w http.ResponseWriter, req *http.Request) error {
	filename, err := pathFilename(req)
	if err != nil {
		return err
	}
	data, err := r.svc.Indicators(req.Context(), filename)
	if err != nil {
		return err
	}
	middleware.IncrementArtifactsFetched()
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	return err
}

// GET /pdf-info/{filename}
func (r *Router) handleInfo(w http.ResponseWriter, req *http.Request) error {
	filename, err := pathFilename(req)
	if err != nil {
		return err
	}
	info, err := r.svc.Info(req.Context(), filename)
	if err != nil {
		return err
	}
	middleware.IncrementArtifactsFetched()
	return writeJSON(w, info)
}

// GET /load-comments/{filename}
// A document nobody has annotated yet is the common case: it answers 404
// with the empty-annotations sentinel the viewer expects, not an error body.
func (r *Router) handleLoadComments(w http.ResponseWriter, req *http.Request) error {
	filename, err := pathFilename(req)
	if err != nil {
		return err
	}
	data, err := r.svc.LoadComments(req.Context(), filename)
	if errors.Is(err, domain.ErrNotFound) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		return json.NewEncoder(w).Encode(map[string]any{"annotations": []any{}})
	}
	if err != nil {
		return err
	}
	middleware.IncrementArtifactsFetched()
	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	return err
}

// POST /save-edited-pi
func (r *Router) handleSave(w http.ResponseWriter, req *http.Request) error {
	var cmd appreview.SaveCommand
	if err := json.NewDecoder(req.Body).Decode(&cmd); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	if err := middleware.ValidateFilename(cmd.Filename); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	res, err := r.svc.Save(req.Context(), cmd)
	if err != nil {
		return err
	}
	middleware.IncrementAnnotationsSaved()
	return writeJSON(w, res)
}

func pathFilename(req *http.Request) (string, error) {
	filename := chi.URLParam(req, "filename")
	if err := middleware.ValidateFilename(filename); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	return filename, nil
}
