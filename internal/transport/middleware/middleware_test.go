package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/gameserver-admin/internal"
	"github.com/frahmantamala/gameserver-admin/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("CORS", func() {
	It("reflects an explicitly allowed origin with credentials", func() {
		h := middleware.CORS([]string{"https://panel.example.com"})(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://panel.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://panel.example.com"))
		Expect(rec.Header().Get("Access-Control-Allow-Credentials")).To(Equal("true"))
	})

	It("leaves unknown origins without allow headers", func() {
		h := middleware.CORS([]string{"https://panel.example.com"})(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("answers preflight requests without reaching the handler", func() {
		reached := false
		h := middleware.CORS([]string{"*"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true }))
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/server/start", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(reached).To(BeFalse())
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("*"))
		Expect(rec.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("POST"))
	})

	It("splits the origins setting", func() {
		Expect(middleware.SplitOrigins(" https://a.example.com, ,https://b.example.com ")).
			To(Equal([]string{"https://a.example.com", "https://b.example.com"}))
		Expect(middleware.SplitOrigins("")).To(BeEmpty())
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("returns a generic internal error without the panic value", func() {
		logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		h := middleware.RecoveryMiddleware(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("open /home/techtonica/saves: permission denied")
		}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).NotTo(ContainSubstring("/home/techtonica"))

		var body map[string]map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
		Expect(body["error"]["code"]).To(Equal("INTERNAL_ERROR"))
	})
})

var _ = Describe("RequestID", func() {
	It("generates a trace id when none is sent", func() {
		rec := httptest.NewRecorder()
		middleware.RequestID(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(rec.Header().Get(middleware.TraceHeader)).NotTo(BeEmpty())
	})

	It("propagates the caller's trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.TraceHeader, "trace-123")
		rec := httptest.NewRecorder()
		middleware.RequestID(ok).ServeHTTP(rec, req)
		Expect(rec.Header().Get(middleware.TraceHeader)).To(Equal("trace-123"))
	})
})

var _ = Describe("ClientIP", func() {
	It("stores the remote host without the port", func() {
		var seen string
		h := middleware.ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = internal.ClientIPFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:52100"
		h.ServeHTTP(httptest.NewRecorder(), req)
		Expect(seen).To(Equal("203.0.113.7"))
	})
})

var _ = Describe("LoggingMiddleware", func() {
	var (
		buf    *bytes.Buffer
		logger *slog.Logger
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		logger = slog.New(slog.NewJSONHandler(buf, nil))
	})

	It("filters credentials from request bodies, headers and queries", func() {
		h := middleware.LoggingMiddleware(logger)(ok)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register?ticket=abc.def.ghi",
			strings.NewReader(`{"username":"bob","password":"hunter22","invite_code":"Xy7Kp2Qa"}`))
		req.Header.Set("Authorization", "Bearer session-token-value")
		h.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		Expect(out).To(ContainSubstring("bob"))
		Expect(out).NotTo(ContainSubstring("hunter22"))
		Expect(out).NotTo(ContainSubstring("Xy7Kp2Qa"))
		Expect(out).NotTo(ContainSubstring("session-token-value"))
		Expect(out).NotTo(ContainSubstring("abc.def.ghi"))
	})

	It("leaves the request body readable for the handler", func() {
		var got string
		h := middleware.LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var dto struct {
				Username string `json:"username"`
			}
			_ = json.NewDecoder(r.Body).Decode(&dto)
			got = dto.Username
		}))
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"bob"}`))
		h.ServeHTTP(httptest.NewRecorder(), req)
		Expect(got).To(Equal("bob"))
	})

	It("logs client errors at warn level", func() {
		h := middleware.LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(buf.String()).To(ContainSubstring(`"level":"WARN"`))
		Expect(buf.String()).To(ContainSubstring(`"status_code":403`))
	})
})
