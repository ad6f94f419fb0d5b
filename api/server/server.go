package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/hanpf2391/Flux/api/common"
	"github.com/hanpf2391/Flux/api/ws"
	"github.com/hanpf2391/Flux/lib/grid"
	"github.com/hanpf2391/Flux/lib/heatmap"
	"github.com/hanpf2391/Flux/lib/hotspot"
	"github.com/hanpf2391/Flux/lib/ratelimit"
	"github.com/hanpf2391/Flux/lib/resolver"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("server")

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var (
	metricWrites    = metrics.NewCounter("flux_cell_writes_total")
	metricConflicts = metrics.NewCounter("flux_cell_write_conflicts_total")
	metricThrottles = metrics.NewCounter("flux_cell_write_throttles_total")
	metricDeletes   = metrics.NewCounter("flux_cell_deletes_total")
)

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// Server wires the canvas subsystems to their HTTP surface.
type Server struct {
	config     common.ServerConfig
	store      grid.GridStore
	resolver   *resolver.Resolver
	limiter    *ratelimit.Limiter
	hub        *ws.Hub
	analyzer   *hotspot.Analyzer
	aggregator *heatmap.Aggregator
}

// New creates a Server over fully constructed subsystems.
func New(
	config common.ServerConfig,
	store grid.GridStore,
	res *resolver.Resolver,
	limiter *ratelimit.Limiter,
	hub *ws.Hub,
	analyzer *hotspot.Analyzer,
	aggregator *heatmap.Aggregator,
) *Server {
	return &Server{
		config:     config,
		store:      store,
		resolver:   res,
		limiter:    limiter,
		hub:        hub,
		analyzer:   analyzer,
		aggregator: aggregator,
	}
}

// Routes builds the HTTP handler with all endpoints registered.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	register := func(pattern string, handler http.HandlerFunc) {
		if s.config.LogLevel == "debug" {
			mux.HandleFunc(pattern, loggerMiddleware(handler))
		} else {
			mux.HandleFunc(pattern, handler)
		}
	}

	register("GET /api/messages", s.handleGetRange)
	register("GET /api/messages/{id}", s.handleGetDetail)
	register("POST /api/messages", s.handleWrite)
	register("GET /api/canvas/initial-position", s.handleInitialPosition)
	register("GET /api/heatmap/chunks", s.handleHeatmap)
	register("GET /api/stats", s.handleStats)
	register("GET /api/stats/viewport", s.handleViewportStats)
	register("GET /api/admin/info", s.handleAdminInfo)
	register("POST /api/admin/cache/clear", s.handleCacheClear)

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(s.hub, w, r)
	})
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return mux
}

// Listen starts the HTTP server. It blocks until the listener fails.
func (s *Server) Listen() error {
	Logger.Infof("Starting HTTP server on %s", s.config.Endpoint)
	return http.ListenAndServe(s.config.Endpoint, s.Routes())
}

// --------------------------------------------------------------------------
// Write path
// --------------------------------------------------------------------------

// writeRequest is the POST body of a cell write.
type writeRequest struct {
	RowIndex      int    `json:"rowIndex"`
	ColIndex      int    `json:"colIndex"`
	Content       string `json:"content"`
	BgColor       string `json:"bgColor"`
	BaseVersionID uint64 `json:"baseVersionId"`
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, grid.NewError(grid.KindValidation, "malformed request body"))
		return
	}

	addr := clientIP(r)
	if !s.limiter.Admit(addr, time.Now()) {
		metricThrottles.Inc()
		writeError(w, grid.NewError(grid.KindThrottled, "operation too frequent, please try again later"))
		return
	}

	coord := grid.Coordinate{Row: req.RowIndex, Col: req.ColIndex}
	result, err := s.resolver.Write(coord, req.Content, req.BgColor, req.BaseVersionID, addr)
	if err != nil {
		if grid.IsKind(err, grid.KindConflict) {
			metricConflicts.Inc()
		}
		writeError(w, err)
		return
	}

	switch result.Outcome {
	case resolver.OutcomeDeleted:
		metricDeletes.Inc()
		writeJSON(w, result.Coord)
	default:
		metricWrites.Inc()
		writeJSON(w, result.State)
	}
}

// clientIP resolves the writer identity, trusting the first X-Forwarded-For
// hop when a proxy added one.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// --------------------------------------------------------------------------
// Read path
// --------------------------------------------------------------------------

func (s *Server) handleGetRange(w http.ResponseWriter, r *http.Request) {
	rect, err := parseRect(r)
	if err != nil {
		writeError(w, err)
		return
	}

	cells, err := s.resolver.GetRange(rect)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, cells)
}

func (s *Server) handleGetDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, grid.NewError(grid.KindValidation, "invalid cell id"))
		return
	}

	detail, err := s.resolver.GetDetail(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, detail)
}

func (s *Server) handleInitialPosition(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.analyzer.Read())
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.aggregator.QueryRaw(r.URL.Query().Get("chunks")))
}

// --------------------------------------------------------------------------
// Statistics
// --------------------------------------------------------------------------

// statsPayload is the system-wide statistics answer. totalCells counts every
// version ever written, visibleCells the currently occupied coordinates.
type statsPayload struct {
	TotalCells   int64 `json:"totalCells"`
	VisibleCells int64 `json:"visibleCells"`
	OnlineUsers  int   `json:"onlineUsers"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.resolver.CountVersionsTotal()
	if err != nil {
		writeError(w, err)
		return
	}
	visible, err := s.resolver.CountCurrentTotal()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, statsPayload{
		TotalCells:   total,
		VisibleCells: visible,
		OnlineUsers:  s.hub.OnlineCount(),
	})
}

func (s *Server) handleViewportStats(w http.ResponseWriter, r *http.Request) {
	rect, err := parseRect(r)
	if err != nil {
		writeError(w, err)
		return
	}

	count, err := s.resolver.CountCurrentInRange(rect)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]int64{"visibleCells": count})
}

func (s *Server) handleAdminInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.store.Info()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"store":            info,
		"onlineUsers":      s.hub.OnlineCount(),
		"trackedWriters":   s.limiter.Size(),
		"heatmapChunkSize": s.aggregator.ChunkSize(),
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.analyzer.Invalidate(); err != nil {
		writeError(w, err)
		return
	}
	Logger.Infof("hotspot cache cleared by admin request")
	writeJSON(w, nil)
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// parseRect reads the closed viewport rectangle from the query string.
func parseRect(r *http.Request) (grid.Rect, error) {
	query := r.URL.Query()

	parse := func(name string) (int, error) {
		value, err := strconv.Atoi(query.Get(name))
		if err != nil {
			return 0, grid.NewError(grid.KindValidation, "invalid or missing query parameter: "+name)
		}
		return value, nil
	}

	minRow, err := parse("minRow")
	if err != nil {
		return grid.Rect{}, err
	}
	maxRow, err := parse("maxRow")
	if err != nil {
		return grid.Rect{}, err
	}
	minCol, err := parse("minCol")
	if err != nil {
		return grid.Rect{}, err
	}
	maxCol, err := parse("maxCol")
	if err != nil {
		return grid.Rect{}, err
	}

	if minRow > maxRow || minCol > maxCol {
		return grid.Rect{}, grid.NewError(grid.KindValidation, "empty viewport rectangle")
	}
	return grid.Rect{RowMin: minRow, RowMax: maxRow, ColMin: minCol, ColMax: maxCol}, nil
}
