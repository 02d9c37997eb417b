package api

import (
	"context"

	"alumnichat/pkg/attachments"
	"alumnichat/pkg/auth"
	"alumnichat/pkg/router"
	"alumnichat/pkg/store"
	"alumnichat/pkg/store/connections"
	"alumnichat/pkg/store/messages"
	"alumnichat/pkg/store/reactions"
	"alumnichat/pkg/store/unread"

	"github.com/valyala/fasthttp"
)

// Deps are the services the HTTP layer dispatches to.
type Deps struct {
	DB          *store.DB
	Connections *connections.Registry
	Messages    *messages.Store
	Reactions   *reactions.Index
	Unread      *unread.Tracker
	Attachments attachments.Store
	// HistoryLimit is the page size when the request names none.
	HistoryLimit int
	// RunRetention triggers one retention pass; nil when retention is disabled.
	RunRetention func(ctx context.Context) (any, error)
}

// NewDeps wires the stores over db.
func NewDeps(db *store.DB, att attachments.Store, historyLimit int) Deps {
	tracker := unread.New(db)
	return Deps{
		DB:           db,
		Connections:  connections.New(db),
		Messages:     messages.New(db, tracker),
		Reactions:    reactions.New(db),
		Unread:       tracker,
		Attachments:  att,
		HistoryLimit: historyLimit,
	}
}

// Server holds the route handlers.
type Server struct {
	deps Deps
}

func New(deps Deps) *Server {
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = messages.DefaultHistoryLimit
	}
	return &Server{deps: deps}
}

// Handler returns the full request chain: request ids, panic recovery, the
// auth gateway, signature verification and the router.
func (s *Server) Handler(sec auth.SecConfig) fasthttp.RequestHandler {
	r := router.New()
	s.RegisterRoutes(r)

	var h fasthttp.RequestHandler = r.Handler
	h = auth.RequireSignedUser(h)
	h = auth.AuthenticateRequestMiddleware(sec)(h)
	h = recoverPanic(h)
	h = requestID(h)
	return h
}
