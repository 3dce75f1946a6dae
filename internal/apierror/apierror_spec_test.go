package apierror

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Error", func() {
	It("implements error interface with message", func() {
		e := BadRequest("bad input")
		Expect(e.Error()).To(Equal("bad input"))
	})
})

var _ = Describe("Write", func() {
	It("writes JSON with the stable error envelope", func() {
		e := BadRequest("Invalid host header")
		rec := httptest.NewRecorder()
		Write(rec, e)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
		Expect(rec.Body.String()).To(MatchJSON(`{"error": "Invalid host header"}`))
	})

	It("never leaks the status into the body", func() {
		rec := httptest.NewRecorder()
		Write(rec, Forbidden("Forbidden"))
		Expect(rec.Body.String()).NotTo(ContainSubstring("403"))
	})
})

var _ = Describe("Unauthorized", func() {
	It("returns 401 with the given message", func() {
		e := Unauthorized("Unauthorized: Invalid CRON_SECRET")
		Expect(e.Status).To(Equal(http.StatusUnauthorized))
		Expect(e.Message).To(Equal("Unauthorized: Invalid CRON_SECRET"))
	})
})

var _ = Describe("TooManyRequests", func() {
	It("returns 429 with the fixed message", func() {
		e := TooManyRequests()
		Expect(e.Status).To(Equal(http.StatusTooManyRequests))
		Expect(e.Message).To(Equal("Too many requests"))
	})
})

var _ = Describe("Internal", func() {
	It("returns 500 with the fixed opaque message", func() {
		e := Internal()
		Expect(e.Status).To(Equal(http.StatusInternalServerError))
		Expect(e.Message).To(Equal("Internal server error"))
	})
})
