package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

const fileRoute = "/api/file"

const (
	msgFileNotFound = "File does not exist."
	msgTreeFailed   = "Could not read directory."
	msgInternal     = "something bad happened"
)

type server struct {
	fs   *filesystem
	tree *treeBuilder
	log  *zap.Logger
}

func newServer(fs *filesystem, maxDepth int, log *zap.Logger) *server {
	return &server{
		fs:   fs,
		tree: &treeBuilder{fs: fs, maxDepth: maxDepth, log: log},
		log:  log,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(instrument)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Range", "Content-Type"},
		ExposedHeaders: []string{"Content-Length", "Content-Range", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", health)
	r.Handle("/metrics", metricsHandler())

	r.With(middleware.Compress(5, "application/json")).Get("/api/files", s.listFiles)
	r.Head("/api/files", s.listFiles)
	r.Get(fileRoute+"/*", s.download)
	r.Head(fileRoute+"/*", s.download)

	return r
}

func (s *server) listFiles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	root, err := s.tree.build(r.Context())
	recordTreeBuild(root, time.Since(start), err)
	if err != nil {
		s.log.Error("build tree",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, msgTreeFailed)
		return
	}

	writeJSON(w, http.StatusOK, root)
}

func (s *server) download(w http.ResponseWriter, r *http.Request) {
	fpath := strings.TrimPrefix(r.URL.EscapedPath(), fileRoute)

	file, err := s.fs.Get(fpath)
	switch {
	case errors.Is(err, errPathEscape):
		pathEscapesTotal.Inc()
		s.log.Warn("rejected path outside root",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", fpath),
		)
		recordDownload("not_found", 0)
		writeError(w, http.StatusNotFound, msgFileNotFound)
		return
	case errors.Is(err, errNotFound):
		recordDownload("not_found", 0)
		writeError(w, http.StatusNotFound, msgFileNotFound)
		return
	case err != nil:
		s.log.Error("open file", zap.String("path", fpath), zap.Error(err))
		recordDownload("error", 0)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		s.log.Error("stat file", zap.String("path", fpath), zap.Error(err))
		recordDownload("error", 0)
		writeError(w, http.StatusInternalServerError, msgInternal)
		return
	}

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	http.ServeContent(ww, r, stat.Name(), stat.ModTime(), file)
	recordDownload(downloadResult(ww.Status()), int64(ww.BytesWritten()))
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
