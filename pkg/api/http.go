package api

import (
	"net/http"
	"runtime"

	"alumnichat/pkg/router"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	heapAlloc = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "alumnichat_heap_alloc_bytes",
			Help: "Current heap allocation in bytes.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.HeapAlloc)
		},
	)

	numGC = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "alumnichat_gc_cycles_total",
			Help: "Total number of GC cycles.",
		},
		func() float64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return float64(stats.NumGC)
		},
	)
)

func init() {
	prometheus.MustRegister(heapAlloc)
	prometheus.MustRegister(numGC)
}

// wrapHTTPHandler wraps an http.Handler to work with fasthttp.
func wrapHTTPHandler(h http.Handler) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(h)
}

// RegisterRoutes wires all API routes onto the provided router.
func (s *Server) RegisterRoutes(r *router.Router) {
	// probes
	r.GET("/healthz", s.Healthz)
	r.GET("/readyz", s.Readyz)

	// connections
	r.POST("/v1/connections/requests", s.RequestConnection)
	r.POST("/v1/connections/respond", s.RespondConnection)
	r.GET("/v1/connections/status", s.ConnectionStatus)
	r.GET("/v1/connections/pending", s.PendingConnections)
	r.GET("/v1/connections/outgoing", s.OutgoingConnections)
	r.GET("/v1/connections", s.ListConnections)

	// messages
	r.POST("/v1/messages", s.SendMessage)
	r.POST("/v1/messages/file", s.SendFile)
	r.GET("/v1/conversations/{peer}/messages", s.ReadHistory)
	r.DELETE("/v1/conversations/{peer}", s.DeleteConversation)
	r.PUT("/v1/conversations/{peer}/read", s.MarkRead)

	// reactions
	r.POST("/v1/messages/{id}/reactions", s.React)
	r.DELETE("/v1/messages/{id}/reactions", s.Unreact)
	r.GET("/v1/messages/{id}/reactions", s.ReadReactions)
	r.GET("/v1/reactions/palette", s.Palette)

	// unread
	r.GET("/v1/unread", s.ReadUnread)

	// attachments
	r.GET("/v1/attachments/{name}", s.ServeAttachment)

	// admin
	r.GET("/admin/stats", s.Stats)
	r.POST("/admin/jobs/purge", s.RunRetention)
	r.GET("/metrics", wrapHTTPHandler(promhttp.Handler()))

	r.NotFound(func(ctx *fasthttp.RequestCtx) {
		router.WriteJSONError(ctx, fasthttp.StatusNotFound, "not found", "not_found")
	})
}
