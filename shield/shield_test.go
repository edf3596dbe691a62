package shield

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/snooze/kit"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders(DefaultHeaders())(okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/items", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options: got %q", got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control: got %q", got)
	}
}

func TestMaxBody(t *testing.T) {
	var readErr error
	h := MaxBody(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		for readErr == nil {
			_, readErr = r.Body.Read(buf)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 32))))
	if readErr == nil || readErr.Error() == "EOF" {
		t.Fatalf("expected a size error, got %v", readErr)
	}
}

func TestTraceID(t *testing.T) {
	var seen string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = kit.GetTraceID(r.Context())
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if seen == "" || w.Header().Get("X-Trace-ID") != seen {
		t.Errorf("trace id: ctx %q header %q", seen, w.Header().Get("X-Trace-ID"))
	}
}

func TestBasicAuth(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	h := BasicAuth("snooze", hash, "/health")(okHandler())

	tests := []struct {
		name, path, pass string
		auth             bool
		want             int
	}{
		{"no credentials", "/api/items", "", false, http.StatusUnauthorized},
		{"wrong password", "/api/items", "nope", true, http.StatusUnauthorized},
		{"right password", "/api/items", "s3cret", true, http.StatusOK},
		{"open path", "/health", "", false, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.path, nil)
			if tt.auth {
				r.SetBasicAuth("any", tt.pass)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Middleware(okHandler())

	post := func() int {
		r := httptest.NewRequest("POST", "/api/import", nil)
		r.RemoteAddr = "10.0.0.1:5000"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	if post() != http.StatusOK || post() != http.StatusOK {
		t.Fatal("first two requests should pass")
	}
	if got := post(); got != http.StatusTooManyRequests {
		t.Fatalf("third request: got %d", got)
	}

	r := httptest.NewRequest("GET", "/api/items", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("GET limited: %d", w.Code)
	}

	now = now.Add(2 * time.Minute)
	if got := post(); got != http.StatusOK {
		t.Errorf("after window: got %d", got)
	}
}

func TestExtractIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", " 1.2.3.4 , 5.6.7.8")
	if got := ExtractIP(r); got != "1.2.3.4" {
		t.Errorf("got %q", got)
	}
}

func TestAPIStack(t *testing.T) {
	stack := APIStack(StackConfig{MaxBody: 1024})
	if len(stack) != 4 {
		t.Fatalf("stack without auth or limiter: got %d", len(stack))
	}
	stack = APIStack(StackConfig{MaxBody: 1024, PasswordHash: "x", Limiter: NewRateLimiter(1, time.Second)})
	if len(stack) != 6 {
		t.Fatalf("full stack: got %d", len(stack))
	}
}
