package middleware_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/member-management/internal"
	"github.com/frahmantamala/member-management/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("CORS", func() {
	handler := middleware.CORS("https://admin.member.local, https://ops.member.local")

	It("should answer a preflight from an allowed origin", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/roller", nil)
		req.Header.Set("Origin", "https://ops.member.local")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		w := httptest.NewRecorder()

		handler(ok).ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://ops.member.local"))
		Expect(w.Header().Get("Access-Control-Allow-Methods")).To(ContainSubstring("PUT"))
	})

	It("should not echo an unknown origin", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/roller", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()

		handler(ok).ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
	})

	It("should allow any origin for a wildcard", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()

		middleware.CORS("*")(ok).ServeHTTP(w, req)

		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://localhost:3000"))
	})
})

var _ = Describe("Recovery", func() {
	It("should turn a panic into the error envelope", func() {
		boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("nil map") })
		w := httptest.NewRecorder()

		middleware.Recovery(boom).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/roller", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		var body internal.ErrorResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Code).To(Equal(internal.ErrCodeInternal))
	})
})

var _ = Describe("TraceID", func() {
	base := slog.New(slog.NewTextHandler(io.Discard, nil))

	It("should keep an incoming trace id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.TraceHeader, "trace-123")
		w := httptest.NewRecorder()

		middleware.TraceID(base)(ok).ServeHTTP(w, req)

		Expect(w.Header().Get(middleware.TraceHeader)).To(Equal("trace-123"))
	})

	It("should mint one when absent", func() {
		w := httptest.NewRecorder()

		middleware.TraceID(base)(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Header().Get(middleware.TraceHeader)).NotTo(BeEmpty())
	})
})

var _ = Describe("Filtering", func() {
	It("should mask sensitive fields at any depth", func() {
		body := `{"email":"a@b.c","password":"hunter2","nested":{"refreshToken":"r"},"items":[{"clientSecret":"s"}]}`

		out := middleware.FilterBody([]byte(body))

		Expect(out).To(ContainSubstring(`"email":"a@b.c"`))
		Expect(out).NotTo(ContainSubstring("hunter2"))
		Expect(out).To(ContainSubstring(`"refreshToken":"[FILTERED]"`))
		Expect(out).To(ContainSubstring(`"clientSecret":"[FILTERED]"`))
	})

	It("should drop non-JSON bodies that mention a secret", func() {
		Expect(middleware.FilterBody([]byte("password=hunter2"))).To(Equal("[FILTERED]"))
		Expect(middleware.FilterBody([]byte("hello"))).To(Equal("hello"))
	})

	It("should truncate large bodies", func() {
		Expect(middleware.FilterBody([]byte(strings.Repeat("a", 5000)))).To(Equal("[TRUNCATED]"))
	})

	It("should mask sensitive headers", func() {
		h := http.Header{}
		h.Set("Authorization", "Bearer abc")
		h.Set("Accept", "application/json")

		out := middleware.FilterHeaders(h)

		Expect(out["Authorization"]).To(Equal("[FILTERED]"))
		Expect(out["Accept"]).To(Equal("application/json"))
	})
})

var _ = Describe("RequestValidator", func() {
	var validator *middleware.RequestValidator

	BeforeEach(func() {
		var err error
		validator, err = middleware.NewRequestValidator(context.Background(), "../../../api/openapi.yml")
		Expect(err).NotTo(HaveOccurred())
	})

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "http://localhost"+path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		validator.Middleware(ok).ServeHTTP(w, req)
		return w
	}

	It("should pass a request matching the document", func() {
		w := post("/api/v1/auth/login", `{"email":"admin@member.local","password":"secret"}`)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("should reject a body missing a required field", func() {
		w := post("/api/v1/auth/login", `{"email":"admin@member.local"}`)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		var body internal.ErrorResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body.Code).To(Equal(internal.ErrCodeValidationFailed))
	})

	It("should leave undocumented paths alone", func() {
		w := post("/metrics", `not json`)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("should fail to start on a missing document", func() {
		_, err := middleware.NewRequestValidator(context.Background(), "does-not-exist.yml")
		Expect(err).To(HaveOccurred())
	})
})
