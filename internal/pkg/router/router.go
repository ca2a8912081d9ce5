package router

import (
	"net/http"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/config"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/jwt"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/uid"
	"github.com/julienschmidt/httprouter"
)

// Handler returns a payload that is wrapped in the success envelope, or an
// error rendered through goerror.
type Handler func(r *Request) (any, error)

// Config holds dependencies required to build a Router.
type Config struct {
	Config     config.Config
	UUID       uid.StringID
	JWT        jwt.JWT
	Instrument instrument.Instrumentation
}

// RouteOption customizes a single route.
type RouteOption func(*route)

type route struct {
	public bool
	mws    []Middleware
}

// Public exempts the route from bearer token authentication.
func Public() RouteOption {
	return func(r *route) { r.public = true }
}

// With appends route specific middleware after the router-wide chain.
func With(mws ...Middleware) RouteOption {
	return func(r *route) { r.mws = append(r.mws, mws...) }
}

// Router serves the JSON API. Every route requires a bearer token unless it
// is registered with Public.
type Router struct {
	hr   *httprouter.Router
	mws  []Middleware
	auth Middleware
}

// NewRouter builds the router with the standard middleware chain.
func NewRouter(cfg Config) *Router {
	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		RedirectFixedPath:      true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		SaveMatchedRoutePath:   true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{Message: "endpoint not found"}, http.StatusNotFound)
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, errorResponse{Message: "method not allowed"}, http.StatusMethodNotAllowed)
		}),
	}

	ro := &Router{
		hr: hr,
		mws: []Middleware{
			middlewareRecoverer,
			middlewareClientIP,
			middlewareCorrelationID(cfg.UUID),
			middlewareObservability(cfg.Config, cfg.Instrument),
			middlewareMaintenance(cfg.Config),
		},
		auth: middlewareAuthentication(cfg.JWT),
	}

	ro.GET("/", func(*Request) (any, error) {
		return welcome{}, nil
	}, Public())

	return ro
}

type welcome struct{}

func (welcome) Message() string { return "Welcome to Admin Pro verification API" }

// GET registers a GET route.
func (r *Router) GET(path string, h Handler, opts ...RouteOption) {
	r.handle(http.MethodGet, path, h, opts...)
}

// POST registers a POST route.
func (r *Router) POST(path string, h Handler, opts ...RouteOption) {
	r.handle(http.MethodPost, path, h, opts...)
}

// DELETE registers a DELETE route.
func (r *Router) DELETE(path string, h Handler, opts ...RouteOption) {
	r.handle(http.MethodDelete, path, h, opts...)
}

func (r *Router) handle(method, path string, h Handler, opts ...RouteOption) {
	var rc route
	for _, opt := range opts {
		opt(&rc)
	}

	chain := append([]Middleware(nil), r.mws...)
	if !rc.public {
		chain = append(chain, r.auth)
	}
	chain = append(chain, rc.mws...)

	r.hr.Handler(method, path, Chain(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		resp, err := h(&Request{Request: req})
		if err != nil {
			if rec, ok := w.(*statusRecorder); ok {
				rec.err = err
			}
			writeError(w, err)
			return
		}
		writeSuccess(w, resp)
	}), chain...))
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.hr.ServeHTTP(w, req)
}
