package main

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediadir_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mediadir_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	treeBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediadir_tree_builds_total",
			Help: "Total number of directory tree builds",
		},
		[]string{"result"},
	)

	treeBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mediadir_tree_build_duration_seconds",
			Help:    "Time to walk the root directory",
			Buckets: prometheus.DefBuckets,
		},
	)

	treeNodes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mediadir_tree_nodes",
			Help: "Number of directories and files in the last built tree",
		},
		[]string{"type"},
	)

	fileDownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mediadir_file_downloads_total",
			Help: "Total number of file requests",
		},
		[]string{"result"},
	)

	fileBytesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediadir_file_bytes_served_total",
			Help: "Total bytes written by the file endpoint",
		},
	)

	pathEscapesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mediadir_path_escapes_total",
			Help: "File requests rejected for resolving outside the root",
		},
	)
)

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func recordTreeBuild(d *Directory, duration time.Duration, err error) {
	treeBuildDuration.Observe(duration.Seconds())
	if err != nil {
		treeBuildsTotal.WithLabelValues("error").Inc()
		return
	}
	treeBuildsTotal.WithLabelValues("success").Inc()

	counts := map[string]int{"directory": 0}
	for _, ft := range []FileType{TypeSong, TypeVideo, TypePDF} {
		counts[ft.String()] = 0
	}
	countByType(d, counts)
	for label, n := range counts {
		treeNodes.WithLabelValues(label).Set(float64(n))
	}
}

func countByType(d *Directory, counts map[string]int) {
	counts["directory"]++
	for _, child := range d.Children {
		switch c := child.(type) {
		case *Directory:
			countByType(c, counts)
		case *File:
			counts[c.Type.String()]++
		}
	}
}

// downloadResult labels a file response by the status ServeContent wrote.
func downloadResult(status int) string {
	switch status {
	case 0, http.StatusOK, http.StatusPartialContent:
		return "success"
	case http.StatusNotModified:
		return "not_modified"
	case http.StatusRequestedRangeNotSatisfiable:
		return "unsatisfiable"
	default:
		return "error"
	}
}

func recordDownload(result string, bytes int64) {
	fileDownloadsTotal.WithLabelValues(result).Inc()
	fileBytesServed.Add(float64(bytes))
}

// instrument records request counts and latency labelled by chi route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && len(rctx.RoutePatterns) > 0 {
			route = strings.Join(rctx.RoutePatterns, "")
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
