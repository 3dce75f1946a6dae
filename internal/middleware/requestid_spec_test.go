package middleware

import (
	"net/http"
	"net/http/httptest"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("RequestID", func() {
	handler := func(captured *string) http.Handler {
		return RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*captured = RequestIDFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))
	}

	It("generates a fresh UUID when the client sends none", func() {
		var fromCtx string
		rec := httptest.NewRecorder()
		handler(&fromCtx).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		echoed := rec.Header().Get("X-Request-Id")
		Expect(echoed).NotTo(BeEmpty())
		Expect(uuid.Validate(echoed)).To(Succeed())
		Expect(fromCtx).To(Equal(echoed))
	})

	It("reuses the client-provided id", func() {
		var fromCtx string
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "client-chosen-id")
		rec := httptest.NewRecorder()
		handler(&fromCtx).ServeHTTP(rec, req)

		Expect(rec.Header().Get("X-Request-Id")).To(Equal("client-chosen-id"))
		Expect(fromCtx).To(Equal("client-chosen-id"))
	})

	It("returns empty from a context without an id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		Expect(RequestIDFromContext(req.Context())).To(BeEmpty())
	})
})
