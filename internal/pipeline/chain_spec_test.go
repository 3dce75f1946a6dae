package pipeline_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fundlane/edgegate/internal/pipeline"
)

// countingStage records invocations and returns a fixed result.
func countingStage(count *int, resp *pipeline.Response, err error) pipeline.Stage {
	return func(ctx context.Context, r *http.Request) (*pipeline.Response, error) {
		*count++
		return resp, err
	}
}

var _ = Describe("Chain", func() {
	req := httptest.NewRequest(http.MethodGet, "/api/funds", nil)

	It("returns the canonical pass-through when every stage continues", func() {
		var a, b int
		chain := pipeline.Chain{
			countingStage(&a, nil, nil),
			countingStage(&b, nil, nil),
		}

		resp, err := chain.Run(context.Background(), req)

		Expect(err).NotTo(HaveOccurred())
		Expect(resp.IsNext()).To(BeTrue())
		Expect(a).To(Equal(1))
		Expect(b).To(Equal(1))
	})

	It("returns the pass-through for an empty chain", func() {
		resp, err := pipeline.Chain{}.Run(context.Background(), req)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.IsNext()).To(BeTrue())
	})

	It("stops at the first terminal response and never invokes later stages", func() {
		var before, terminal, after int
		denied := pipeline.Error(http.StatusForbidden, "denied")
		chain := pipeline.Chain{
			countingStage(&before, nil, nil),
			countingStage(&terminal, denied, nil),
			countingStage(&after, nil, nil),
		}

		resp, err := chain.Run(context.Background(), req)

		Expect(err).NotTo(HaveOccurred())
		Expect(resp).To(BeIdenticalTo(denied))
		Expect(before).To(Equal(1))
		Expect(terminal).To(Equal(1))
		Expect(after).To(BeZero())
	})

	It("executes stages strictly in list order", func() {
		var order []string
		record := func(name string) pipeline.Stage {
			return func(ctx context.Context, r *http.Request) (*pipeline.Response, error) {
				order = append(order, name)
				return nil, nil
			}
		}
		chain := pipeline.Chain{record("host"), record("cors"), record("auth")}

		_, err := chain.Run(context.Background(), req)

		Expect(err).NotTo(HaveOccurred())
		Expect(order).To(Equal([]string{"host", "cors", "auth"}))
	})

	It("propagates stage errors without handling them", func() {
		var after int
		boom := errors.New("store unreachable")
		chain := pipeline.Chain{
			countingStage(new(int), nil, boom),
			countingStage(&after, nil, nil),
		}

		resp, err := chain.Run(context.Background(), req)

		Expect(err).To(MatchError(boom))
		Expect(resp).To(BeNil())
		Expect(after).To(BeZero())
	})
})
