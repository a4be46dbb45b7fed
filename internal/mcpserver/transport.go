package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// RunStdio serves server over stdio, returning once the input stream
// closes (clean shutdown) or the context is cancelled.
func RunStdio(ctx context.Context, server *mcpsdk.Server) error {
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

// HTTPServer wraps the SSE transport in a chi router with a health
// endpoint, following this codebase's gateway chi.Router shape.
type HTTPServer struct {
	httpServer *http.Server
	addr       string
}

// NewHTTPServer mounts server's SSE transport at /mcp and a liveness probe
// at /healthz, listening on host:port.
func NewHTTPServer(server *mcpsdk.Server, host string, port int) *HTTPServer {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	sseHandler := mcpsdk.NewSSEHandler(func(*http.Request) *mcpsdk.Server {
		return server
	})

	r.Get("/healthz", handleHealth)
	r.Handle("/mcp", sseHandler)
	r.Handle("/mcp/*", sseHandler)

	addr := fmt.Sprintf("%s:%d", host, port)
	return &HTTPServer{
		addr:       addr,
		httpServer: &http.Server{Addr: addr, Handler: r},
	}
}

// Start begins listening; it blocks until Shutdown is called or the
// listener fails.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the HTTP server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
