package proxy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/webview-iframe/internal/infrastructure/monitoring"
)

// Interceptor handles a download the proxy short-circuited. Begin runs on
// the request path after the response is flushed and must not block.
// Intercept runs detached and may be queued behind earlier downloads.
type Interceptor interface {
	Begin(requestURI string)
	Intercept(ctx context.Context, requestURI string)
}

// Scheduler runs work detached from the request that caused it.
type Scheduler interface {
	Go(name string, fn func(ctx context.Context)) error
}

// Config holds proxy settings.
type Config struct {
	// Upstream is the origin every non-intercepted request is sent to.
	Upstream string
	Trigger  Trigger
	// StripHeaders lists response headers to remove, matched case-insensitively.
	StripHeaders    []string
	FollowRedirects bool
}

// Proxy is the local HTTP proxy.
type Proxy struct {
	engine      *gin.Engine
	upstream    *url.URL
	trigger     Trigger
	strip       []string
	reverse     *httputil.ReverseProxy
	interceptor Interceptor
	scheduler   Scheduler
	logger      *logging.Logger
	metrics     *monitoring.Metrics
}

// New builds the proxy. metrics may be nil.
func New(cfg Config, interceptor Interceptor, scheduler Scheduler, logger *logging.Logger, metrics *monitoring.Metrics) (*Proxy, error) {
	upstream, err := url.Parse(cfg.Upstream)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream %q: %w", cfg.Upstream, err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("upstream %q must be an absolute URL", cfg.Upstream)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	p := &Proxy{
		upstream:    upstream,
		trigger:     cfg.Trigger,
		strip:       cfg.StripHeaders,
		interceptor: interceptor,
		scheduler:   scheduler,
		logger:      logger.Named("proxy"),
		metrics:     metrics,
	}

	p.reverse = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			// SetURL also replaces the Host header with the upstream's.
			pr.SetURL(upstream)
		},
		Transport:      newTransport(cfg.FollowRedirects),
		ModifyResponse: p.stripHeaders,
		ErrorHandler:   p.upstreamError,
	}

	router := gin.New()
	router.Use(p.recovery)
	router.Use(monitoring.Middleware(metrics))
	router.Use(p.intercept)
	router.NoRoute(p.forward)
	p.engine = router

	return p, nil
}

// Handler returns the proxy's HTTP handler.
func (p *Proxy) Handler() http.Handler {
	return p.engine
}

// intercept answers trigger requests with an empty 204 and schedules the
// import after the response is flushed.
func (p *Proxy) intercept(c *gin.Context) {
	if !p.trigger.Match(c.Request.URL.Path) {
		c.Next()
		return
	}

	requestURI := c.Request.URL.RequestURI()
	p.metrics.IncInterceptions()
	p.logger.Info("Intercepted download", zap.String("request_uri", requestURI))

	c.AbortWithStatus(http.StatusNoContent)
	c.Writer.Flush()

	p.interceptor.Begin(requestURI)
	err := p.scheduler.Go("import", func(ctx context.Context) {
		p.interceptor.Intercept(ctx, requestURI)
	})
	if err != nil {
		p.logger.Warn("Failed to schedule import", zap.String("request_uri", requestURI), zap.Error(err))
	}
}

// recovery turns handler panics into 500s, except http.ErrAbortHandler,
// which ReverseProxy raises when the upstream body breaks mid-copy. That one
// must reach net/http so the client connection is cut instead of the
// truncated body looking complete.
func (p *Proxy) recovery(c *gin.Context) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if err, ok := r.(error); ok && errors.Is(err, http.ErrAbortHandler) {
			p.logger.Debug("Aborted response", zap.String("path", c.Request.URL.Path))
			panic(r)
		}
		p.logger.Error("Recovered from panic",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
		c.AbortWithStatus(http.StatusInternalServerError)
	}()
	c.Next()
}

func (p *Proxy) forward(c *gin.Context) {
	p.reverse.ServeHTTP(c.Writer, c.Request)
	// An empty upstream 404 must not pick up gin's default body.
	c.Writer.WriteHeaderNow()
}

func (p *Proxy) stripHeaders(resp *http.Response) error {
	for key := range resp.Header {
		for _, name := range p.strip {
			if strings.EqualFold(key, name) {
				delete(resp.Header, key)
				p.metrics.RecordHeaderStripped(http.CanonicalHeaderKey(key))
				break
			}
		}
	}
	return nil
}

func (p *Proxy) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.Error("Upstream request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("upstream", p.upstream.String()),
		zap.Error(err),
	)
	w.WriteHeader(http.StatusBadGateway)
}
