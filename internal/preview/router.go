// Package preview serves a generated site over HTTP with build status,
// history and live-reload endpoints, using chi.
package preview

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/sitegen/internal/history"
)

// Routes served next to the site pages.
const (
	Prefix      = "/_sitegen"
	EventsPath  = Prefix + "/events"
	StatusPath  = Prefix + "/status"
	HistoryPath = Prefix + "/history"
)

// Options configure NewRouter. Only OutputDir is required.
type Options struct {
	OutputDir  string
	Status     *Status
	Events     http.Handler  // mounted at EventsPath when non-nil
	History    history.Store // enables HistoryPath when non-nil
	LiveReload bool          // inject the reload script into HTML pages
	Logger     *slog.Logger
}

// NewRouter creates the preview router.
func NewRouter(opts Options) chi.Router {
	if opts.Status == nil {
		opts.Status = &Status{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(opts.Logger))

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, healthOK)
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if _, n := opts.Status.Last(); n == 0 {
			writeHealth(w, http.StatusServiceUnavailable, healthBuilding)
			return
		}
		writeHealth(w, http.StatusOK, healthOK)
	})

	r.Get(StatusPath, func(w http.ResponseWriter, _ *http.Request) {
		last, n := opts.Status.Last()
		writeJSON(w, http.StatusOK, statusResponse{Builds: n, Last: last})
	})

	if opts.Events != nil {
		r.Get(EventsPath, opts.Events.ServeHTTP)
	}

	h := &historyHandler{store: opts.History}
	r.Get(HistoryPath, h.list)
	r.Get(HistoryPath+"/{id}", h.documents)

	root := http.Dir(opts.OutputDir)
	var files http.Handler = http.FileServer(root)
	if opts.LiveReload {
		files = liveReload(root, files)
	}
	r.Handle("/*", files)

	return r
}

type historyHandler struct {
	store history.Store
}

func (h *historyHandler) list(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := h.store.Recent(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *historyHandler) documents(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}
	docs, err := h.store.Documents(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []history.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

// requestLogger logs each request at debug level.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("preview: request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
