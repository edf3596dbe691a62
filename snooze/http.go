package snooze

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/snooze/kit"
	"github.com/hazyhaar/snooze/shield"
)

// Handler is the admin API:
//
//	GET    /health           engine stats
//	GET    /api/items        items of the live session
//	PUT    /api/items/{id}   {"date": "YYYY-MM-DD"}
//	DELETE /api/items/{id}   wake now
//	GET    /api/export       store as an attachment
//	POST   /api/import       export file as body; reloads the page
//	POST   /api/override     {"show": bool}, or no body to flip
//	       /mcp              streamable MCP endpoint
func (e *Engine) Handler() http.Handler {
	r := chi.NewRouter()
	for _, mw := range shield.APIStack(shield.StackConfig{
		MaxBody:      e.cfg.HTTP.MaxBody,
		PasswordHash: e.cfg.HTTP.PasswordHash,
		Limiter:      shield.NewRateLimiter(60, time.Minute),
	}) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		kit.WriteJSON(w, http.StatusOK, e.Stats())
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/items", kit.HTTPHandler(e.endpoint("list", e.listEndpoint), kit.NoBody))
		r.Put("/items/{id}", kit.HTTPHandler(e.endpoint("set", e.setEndpoint), decodeSet))
		r.Delete("/items/{id}", kit.HTTPHandler(e.endpoint("clear", e.clearEndpoint), decodeID))
		r.Get("/export", e.handleExport)
		r.Post("/import", kit.HTTPHandler(e.endpoint("import", e.importEndpoint), decodeRaw))
		r.Post("/override", kit.HTTPHandler(e.endpoint("override", e.overrideEndpoint), decodeOverride))
	})

	srv := e.MCPServer()
	r.Handle("/mcp", mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server { return srv }, nil))
	return r
}

func (e *Engine) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := e.Export(r.Context())
	if err != nil {
		kit.WriteJSON(w, kit.StatusOf(err), map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFileName+`"`)
	w.Write(data)
}

// decodeSet takes the date from the body and the id from the path.
func decodeSet(r *http.Request) (any, error) {
	v, err := kit.DecodeJSON[setRequest](r)
	if err != nil {
		return nil, err
	}
	req := v.(setRequest)
	req.ID = chi.URLParam(r, "id")
	return req, nil
}

func decodeID(r *http.Request) (any, error) {
	return idRequest{ID: chi.URLParam(r, "id")}, nil
}

func decodeRaw(r *http.Request) (any, error) {
	return io.ReadAll(r.Body)
}

func decodeOverride(r *http.Request) (any, error) {
	var req overrideRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return req, nil
}

func decodeExport(data []byte) (map[string]string, error) {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (e *Engine) serveHTTP(ctx context.Context, ln net.Listener) {
	srv := &http.Server{
		Handler:           e.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	e.logger.Info("snooze: admin API listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		e.logger.Error("snooze: admin API stopped", "error", err)
	}
}
