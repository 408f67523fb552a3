package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	chiMiddleware "github.com/go-chi/chi/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Merchously/iRun/internal"
	"github.com/Merchously/iRun/internal/transport/middleware"
	"github.com/Merchously/iRun/pkg/logger"
)

var _ = Describe("HTTP middleware", func() {
	Describe("RequestID", func() {
		It("echoes a caller supplied trace id", func() {
			h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(middleware.TraceIDHeader, "trace-123")
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)
			Expect(rec.Header().Get(middleware.TraceIDHeader)).To(Equal("trace-123"))
		})

		It("generates one when absent", func() {
			h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			Expect(rec.Header().Get(middleware.TraceIDHeader)).To(HaveLen(36))
		})
	})

	Describe("SourceAddress", func() {
		It("prefers the first forwarded hop", func() {
			var seen string
			h := middleware.SourceAddress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = internal.SourceAddressFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

			h.ServeHTTP(httptest.NewRecorder(), req)
			Expect(seen).To(Equal("203.0.113.9"))
		})

		It("falls back to the peer host", func() {
			var seen string
			h := middleware.SourceAddress(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = internal.SourceAddressFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "198.51.100.4:5555"

			h.ServeHTTP(httptest.NewRecorder(), req)
			Expect(seen).To(Equal("198.51.100.4"))
		})
	})

	Describe("LoggingMiddleware", func() {
		It("masks credentials in headers and bodies", func() {
			var buf bytes.Buffer
			lg := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			inner := middleware.LoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"token":"abc123","user":{"email":"a@b.c"}}`))
			}))
			h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				inner.ServeHTTP(w, r.WithContext(logger.NewContext(r.Context(), lg)))
			})

			req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.c","password":"hunter22"}`))
			req.Header.Set("Authorization", "Bearer secret-token")
			req.Header.Set("Cookie", "irun_session=abc123")
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			Expect(rec.Code).To(Equal(http.StatusCreated))
			Expect(rec.Body.String()).To(ContainSubstring("abc123"))
			out := buf.String()
			Expect(out).To(ContainSubstring("status_code=201"))
			Expect(out).To(ContainSubstring("a@b.c"))
			Expect(out).ToNot(ContainSubstring("hunter22"))
			Expect(out).ToNot(ContainSubstring("secret-token"))
			Expect(out).ToNot(ContainSubstring("abc123"))
		})

		It("leaves the request body readable for the handler", func() {
			var got string
			h := middleware.LoggingMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var body map[string]string
				_ = json.NewDecoder(r.Body).Decode(&body)
				got = body["name"]
			}))

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Banff"}`)))
			Expect(got).To(Equal("Banff"))
		})
	})

	Describe("RecoveryMiddleware", func() {
		It("answers 500 with the error envelope", func() {
			h := middleware.RecoveryMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic("boom")
			}))
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(rec.Code).To(Equal(http.StatusInternalServerError))
			var body struct {
				Error struct {
					Type string `json:"type"`
				} `json:"error"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Error.Type).To(Equal("INTERNAL_ERROR"))
		})
	})

	Describe("CORS", func() {
		var h http.Handler

		BeforeEach(func() {
			h = middleware.CORS("https://irun.ca, https://admin.irun.ca/")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))
		})

		It("answers preflight for listed origins", func() {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/events", nil)
			req.Header.Set("Origin", "https://admin.irun.ca")
			req.Header.Set("Access-Control-Request-Method", "POST")
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://admin.irun.ca"))
			Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
		})

		It("passes unknown origins through without CORS headers", func() {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
			req.Header.Set("Origin", "https://evil.example")
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusTeapot))
			Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
		})
	})

	Describe("RateLimit", func() {
		ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		send := func(h http.Handler, addr string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			return rec
		}

		It("rejects a client once its burst is spent", func() {
			h := middleware.RateLimit(middleware.NewClientRateLimiter(1, 2))(ok)

			Expect(send(h, "10.0.0.1:1000").Code).To(Equal(http.StatusOK))
			Expect(send(h, "10.0.0.1:1001").Code).To(Equal(http.StatusOK))

			rec := send(h, "10.0.0.1:1002")
			Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
			Expect(rec.Header().Get("Retry-After")).To(Equal("60"))

			var body map[string]map[string]interface{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["error"]["type"]).To(Equal(string(internal.ErrorTypeRateLimited)))
		})

		It("keeps separate budgets per client", func() {
			h := middleware.RateLimit(middleware.NewClientRateLimiter(1, 1))(ok)

			Expect(send(h, "10.0.0.1:1000").Code).To(Equal(http.StatusOK))
			Expect(send(h, "10.0.0.2:1000").Code).To(Equal(http.StatusOK))
			Expect(send(h, "10.0.0.1:1000").Code).To(Equal(http.StatusTooManyRequests))
		})

		It("keys on the connection address, not on forwarded headers", func() {
			h := middleware.RateLimit(middleware.NewClientRateLimiter(1, 1))(ok)
			spoofed := func(fwd string) int {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
				req.RemoteAddr = "10.0.0.1:1000"
				req.Header.Set("X-Forwarded-For", fwd)
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				return rec.Code
			}

			Expect(spoofed("203.0.113.1")).To(Equal(http.StatusOK))
			Expect(spoofed("203.0.113.2")).To(Equal(http.StatusTooManyRequests))
		})

		It("uses the peer address captured before RealIP", func() {
			h := middleware.PeerAddress(chiMiddleware.RealIP(
				middleware.RateLimit(middleware.NewClientRateLimiter(1, 1))(ok)))
			send := func(fwd string) int {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
				req.RemoteAddr = "10.0.0.1:1000"
				req.Header.Set("X-Forwarded-For", fwd)
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)
				return rec.Code
			}

			Expect(send("203.0.113.1")).To(Equal(http.StatusOK))
			Expect(send("203.0.113.2")).To(Equal(http.StatusTooManyRequests))
		})

		It("is disabled with a zero rate", func() {
			l := middleware.NewClientRateLimiter(0, 1)
			for i := 0; i < 20; i++ {
				Expect(l.Allow("10.0.0.1")).To(BeTrue())
			}
		})
	})
})
