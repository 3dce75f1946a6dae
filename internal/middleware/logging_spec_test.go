package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logging", func() {
	It("logs method, path, status, and the request id", func() {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		h := Chain(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
			}),
			RequestID(),
			Logging(logger),
		)

		req := httptest.NewRequest(http.MethodPost, "/api/funds", nil)
		req.Header.Set("X-Request-Id", "rid-123")
		h.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		Expect(out).To(ContainSubstring("method=POST"))
		Expect(out).To(ContainSubstring("path=/api/funds"))
		Expect(out).To(ContainSubstring("status=201"))
		Expect(out).To(ContainSubstring("request_id=rid-123"))
	})

	It("records 200 when the handler never writes a status", func() {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(buf.String()).To(ContainSubstring("status=200"))
	})
})
