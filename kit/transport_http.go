package kit

import (
	"encoding/json"
	"net/http"
)

// HTTPDecoder extracts the typed request from an HTTP request.
type HTTPDecoder func(*http.Request) (any, error)

// HTTPHandler exposes endpoint over HTTP. The response is written as JSON;
// errors become {"error": "..."} with the status from StatusOf.
func HTTPHandler(endpoint Endpoint, decode HTTPDecoder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := decode(r)
		if err != nil {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		ctx := WithRemoteAddr(WithTransport(r.Context(), "http"), r.RemoteAddr)
		resp, err := endpoint(ctx, in)
		if err != nil {
			WriteJSON(w, StatusOf(err), map[string]string{"error": err.Error()})
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// NoBody is an HTTPDecoder for requests without input.
func NoBody(*http.Request) (any, error) { return nil, nil }

// DecodeJSON decodes the request body into a fresh T.
func DecodeJSON[T any](r *http.Request) (any, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
