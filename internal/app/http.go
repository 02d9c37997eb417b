package app

import (
	"time"

	"github.com/valyala/fasthttp"

	"alumnichat/pkg/api"
	"alumnichat/pkg/auth"
	"alumnichat/pkg/config/banner"
)

const (
	readBufferSize       = 64 * 1024
	minRequestBodySize   = 5 * 1024 * 1024
	multipartOverhead    = 1024 * 1024
	readTimeout          = 30 * time.Second
	writeTimeout         = 30 * time.Second
	idleTimeout          = 30 * time.Second
	maxKeepaliveDuration = 2 * time.Minute
)

// printBanner prints the startup banner and build info.
func (a *App) printBanner() {
	verStr := a.version
	if a.commit != "" && a.commit != "none" {
		verStr += " (" + a.commit + ")"
	}
	if a.buildDate != "" && a.buildDate != "unknown" {
		verStr += " @ " + a.buildDate
	}
	banner.PrintWithEff(a.eff, verStr)
}

// Handler builds the full request chain over the wired services.
func (a *App) Handler() fasthttp.RequestHandler {
	return api.New(a.deps).Handler(auth.SecConfigFrom(a.eff.Config))
}

// maxRequestBodySize leaves room for a full attachment plus its multipart framing.
func maxRequestBodySize(attachmentMax int64) int {
	n := attachmentMax + multipartOverhead
	if n < minRequestBodySize {
		n = minRequestBodySize
	}
	return int(n)
}

// startHTTP builds and starts the fasthttp server, returning a channel that delivers errors.
func (a *App) startHTTP() <-chan error {
	cfg := a.eff.Config
	srv := &fasthttp.Server{
		Name:                 "alumnichat",
		Handler:              a.Handler(),
		ReadBufferSize:       readBufferSize,
		MaxRequestBodySize:   maxRequestBodySize(cfg.Attachments.MaxSize.Int64()),
		ReduceMemoryUsage:    true,
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		MaxKeepaliveDuration: maxKeepaliveDuration,
	}
	a.mu.Lock()
	a.srvFast = srv
	a.mu.Unlock()

	addr := a.eff.Addr
	if addr == "" {
		addr = cfg.Addr()
	}
	errCh := make(chan error, 1)
	go func() {
		if cert, key := cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile; cert != "" {
			errCh <- srv.ListenAndServeTLS(addr, cert, key)
			return
		}
		errCh <- srv.ListenAndServe(addr)
	}()
	return errCh
}
