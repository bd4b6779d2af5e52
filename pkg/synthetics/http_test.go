package synthetics_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/netsonde/synthctl/pkg/errors"
	"github.com/netsonde/synthctl/pkg/synthetics"
)

var _ = Describe("NormalizeAPIURL", func() {
	type testCase struct {
		input  string
		output string
	}

	tests := []testCase{
		{input: "", output: "https://synthetics.api.netsonde.com"},
		{input: "api.netsonde.com", output: "https://synthetics.api.netsonde.com"},
		{input: "https://api.netsonde.com", output: "https://synthetics.api.netsonde.com"},
		{input: "https://api.eu.netsonde.com", output: "https://synthetics.api.eu.netsonde.com"},
		{input: "synthetics.api.netsonde.com", output: "https://synthetics.api.netsonde.com"},
		{input: "http://localhost:8080/", output: "http://localhost:8080"},
		{input: "https://portal.example.com", output: "https://portal.example.com"},
	}

	It("maps portal addresses onto the synthetics endpoint", func() {
		for _, tc := range tests {
			Expect(synthetics.NormalizeAPIURL(tc.input)).To(Equal(tc.output), tc.input)
		}
	})
})

var _ = Describe("HTTPTransport", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	newServer := func(h http.HandlerFunc) *httptest.Server {
		srv := httptest.NewServer(h)
		DeferCleanup(srv.Close)
		return srv
	}

	newTransport := func(srv *httptest.Server, opts ...synthetics.TransportOption) *synthetics.HTTPTransport {
		opts = append([]synthetics.TransportOption{
			synthetics.WithAPIURL(srv.URL),
			synthetics.WithRetryInterval(time.Millisecond),
		}, opts...)
		transport, err := synthetics.NewHTTPTransport("ops@netsonde.test", "token-1", opts...)
		Expect(err).NotTo(HaveOccurred())
		return transport
	}

	Context("construction", func() {
		It("requires both credentials", func() {
			_, err := synthetics.NewHTTPTransport("", "")

			Expect(errors.IsCredentialsError(err)).To(BeTrue())
			Expect(err).To(MatchError("credentials not available: missing email, api token"))
		})

		It("names the single missing credential", func() {
			_, err := synthetics.NewHTTPTransport("ops@netsonde.test", "")

			Expect(err).To(MatchError("credentials not available: missing api token"))
		})

		It("defaults to the public API endpoint", func() {
			transport, err := synthetics.NewHTTPTransport("ops@netsonde.test", "token-1")

			Expect(err).NotTo(HaveOccurred())
			Expect(transport.URL()).To(Equal(synthetics.DefaultAPIURL))
		})

		It("normalizes a custom endpoint", func() {
			transport, err := synthetics.NewHTTPTransport("ops@netsonde.test", "token-1",
				synthetics.WithAPIURL("api.eu.netsonde.com"))

			Expect(err).NotTo(HaveOccurred())
			Expect(transport.URL()).To(Equal("https://synthetics.api.eu.netsonde.com"))
		})

		It("rejects an unparsable proxy", func() {
			_, err := synthetics.NewHTTPTransport("ops@netsonde.test", "token-1",
				synthetics.WithProxy("://bad"))

			Expect(errors.IsConfigError(err)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("invalid proxy URL")))
		})

		It("rejects a missing CA bundle", func() {
			_, err := synthetics.NewHTTPTransport("ops@netsonde.test", "token-1",
				synthetics.WithCAFile("/nonexistent/bundle.pem"))

			Expect(err).To(MatchError(ContainSubstring("failed to read CA bundle")))
		})
	})

	Context("request routing", func() {
		It("maps each operation onto its endpoint", func() {
			type route struct{ method, path string }
			var (
				mu  sync.Mutex
				got route
			)
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				got = route{r.Method, r.URL.Path}
				mu.Unlock()
				fmt.Fprint(w, `{"agents":[],"agent":{},"tests":[],"test":{},"health":[],"results":[],"trace":{}}`)
			})
			transport := newTransport(srv)

			expected := map[string]route{
				synthetics.OpAgentsList:         {http.MethodGet, "/synthetics/v1/agents"},
				synthetics.OpAgentGet:           {http.MethodGet, "/synthetics/v1/agents/7"},
				synthetics.OpAgentUpdate:        {http.MethodPut, "/synthetics/v1/agents/7"},
				synthetics.OpAgentPatch:         {http.MethodPatch, "/synthetics/v1/agents/7"},
				synthetics.OpAgentDelete:        {http.MethodDelete, "/synthetics/v1/agents/7"},
				synthetics.OpTestsList:          {http.MethodGet, "/synthetics/v1/tests"},
				synthetics.OpTestGet:            {http.MethodGet, "/synthetics/v1/tests/7"},
				synthetics.OpTestCreate:         {http.MethodPost, "/synthetics/v1/tests"},
				synthetics.OpTestUpdate:         {http.MethodPut, "/synthetics/v1/tests/7"},
				synthetics.OpTestPatch:          {http.MethodPatch, "/synthetics/v1/tests/7"},
				synthetics.OpTestDelete:         {http.MethodDelete, "/synthetics/v1/tests/7"},
				synthetics.OpTestStatusUpdate:   {http.MethodPut, "/synthetics/v1/tests/7/status"},
				synthetics.OpGetHealthForTests:  {http.MethodPost, "/synthetics/v1/health/tests"},
				synthetics.OpGetResultsForTests: {http.MethodPost, "/synthetics/v1/tests/results"},
				synthetics.OpGetTraceForTest:    {http.MethodPost, "/synthetics/v1/tests/7/results/trace"},
			}

			for op, want := range expected {
				_, err := transport.Req(ctx, op, synthetics.Request{ID: "7"})
				Expect(err).NotTo(HaveOccurred(), op)
				mu.Lock()
				Expect(got).To(Equal(want), op)
				mu.Unlock()
			}
		})

		It("authenticates every request with the account headers", func() {
			var (
				mu      sync.Mutex
				headers http.Header
			)
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				headers = r.Header.Clone()
				mu.Unlock()
				fmt.Fprint(w, `{"tests":[]}`)
			})
			transport := newTransport(srv)

			_, err := transport.Req(ctx, synthetics.OpTestsList, synthetics.Request{})

			Expect(err).NotTo(HaveOccurred())
			mu.Lock()
			defer mu.Unlock()
			Expect(headers.Get("X-NS-Auth-Email")).To(Equal("ops@netsonde.test"))
			Expect(headers.Get("X-NS-Auth-Token")).To(Equal("token-1"))
			Expect(headers.Get("Content-Type")).To(Equal("application/json"))
			_, err = uuid.Parse(headers.Get("X-Request-ID"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("passes query parameters through", func() {
			var (
				mu      sync.Mutex
				presets string
			)
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				mu.Lock()
				presets = r.URL.Query().Get("presets")
				mu.Unlock()
				fmt.Fprint(w, `{"tests":[]}`)
			})
			transport := newTransport(srv)

			_, err := transport.Req(ctx, synthetics.OpTestsList, synthetics.Request{
				Params: map[string]string{"presets": "true"},
			})

			Expect(err).NotTo(HaveOccurred())
			mu.Lock()
			defer mu.Unlock()
			Expect(presets).To(Equal("true"))
		})

		It("sends the request body as JSON", func() {
			var (
				mu   sync.Mutex
				body []byte
			)
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				data, _ := io.ReadAll(r.Body)
				mu.Lock()
				body = data
				mu.Unlock()
				fmt.Fprint(w, `{"health":[]}`)
			})
			transport := newTransport(srv)

			_, err := transport.Req(ctx, synthetics.OpGetHealthForTests, synthetics.Request{
				Body: map[string]any{"ids": []string{"7"}, "augment": true},
			})

			Expect(err).NotTo(HaveOccurred())
			mu.Lock()
			defer mu.Unlock()
			var decoded map[string]any
			Expect(json.Unmarshal(body, &decoded)).To(Succeed())
			Expect(decoded).To(Equal(map[string]any{"ids": []any{"7"}, "augment": true}))
		})

		It("rejects unknown operations", func() {
			transport, err := synthetics.NewHTTPTransport("ops@netsonde.test", "token-1")
			Expect(err).NotTo(HaveOccurred())

			_, err = transport.Req(ctx, "TestsReap", synthetics.Request{})

			Expect(errors.IsConfigError(err)).To(BeTrue())
			Expect(err).To(MatchError("unknown API operation 'TestsReap'"))
		})

		It("rejects per-resource operations without an id", func() {
			transport, err := synthetics.NewHTTPTransport("ops@netsonde.test", "token-1")
			Expect(err).NotTo(HaveOccurred())

			_, err = transport.Req(ctx, synthetics.OpTestGet, synthetics.Request{})

			Expect(errors.IsConfigError(err)).To(BeTrue())
			Expect(err).To(MatchError("operation 'TestGet' requires a resource id"))
		})
	})

	Context("response envelopes", func() {
		It("unwraps the operation's response key", func() {
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"test":{"id":"42"},"noise":true}`)
			})
			transport := newTransport(srv)

			payload, err := transport.Req(ctx, synthetics.OpTestGet, synthetics.Request{ID: "42"})

			Expect(err).NotTo(HaveOccurred())
			Expect(payload).To(Equal(map[string]any{"id": "42"}))
		})

		It("returns no payload for envelope-free operations", func() {
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{}`)
			})
			transport := newTransport(srv)

			payload, err := transport.Req(ctx, synthetics.OpTestDelete, synthetics.Request{ID: "42"})

			Expect(err).NotTo(HaveOccurred())
			Expect(payload).To(BeNil())
		})

		It("fails when the response key is missing", func() {
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{}`)
			})
			transport := newTransport(srv)

			_, err := transport.Req(ctx, synthetics.OpTestGet, synthetics.Request{ID: "42"})

			Expect(errors.IsAPIRequestError(err)).To(BeTrue())
			Expect(err).To(MatchError("TestGet: response is missing 'test'"))
		})

		It("fails on an undecodable response", func() {
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `not json`)
			})
			transport := newTransport(srv)

			_, err := transport.Req(ctx, synthetics.OpTestGet, synthetics.Request{ID: "42"})

			Expect(errors.IsAPIRequestError(err)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("cannot decode response")))
		})
	})

	Context("retries", func() {
		It("retries server errors until the API recovers", func() {
			var attempts atomic.Int32
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				if attempts.Add(1) < 3 {
					w.WriteHeader(http.StatusServiceUnavailable)
					return
				}
				fmt.Fprint(w, `{"tests":[]}`)
			})
			transport := newTransport(srv)

			payload, err := transport.Req(ctx, synthetics.OpTestsList, synthetics.Request{})

			Expect(err).NotTo(HaveOccurred())
			Expect(payload).To(Equal([]any{}))
			Expect(attempts.Load()).To(Equal(int32(3)))
		})

		It("gives up after the configured attempts", func() {
			var attempts atomic.Int32
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(http.StatusBadGateway)
			})
			transport := newTransport(srv, synthetics.WithMaxAttempts(2))

			_, err := transport.Req(ctx, synthetics.OpTestsList, synthetics.Request{})

			Expect(errors.IsAPIRequestError(err)).To(BeTrue())
			Expect(err).To(MatchError(ContainSubstring("status: 502")))
			Expect(attempts.Load()).To(Equal(int32(2)))
		})

		It("does not retry client errors", func() {
			var attempts atomic.Int32
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"error":"test not found"}`)
			})
			transport := newTransport(srv)

			_, err := transport.Req(ctx, synthetics.OpTestGet, synthetics.Request{ID: "42"})

			Expect(errors.IsNotFound(err)).To(BeTrue())
			Expect(attempts.Load()).To(Equal(int32(1)))
		})

		It("carries the response body in the request error", func() {
			srv := newServer(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				fmt.Fprint(w, `{"error":"mask required"}`)
			})
			transport := newTransport(srv)

			_, err := transport.Req(ctx, synthetics.OpTestPatch, synthetics.Request{ID: "42"})

			var reqErr *errors.APIRequestError
			Expect(stderrors.As(err, &reqErr)).To(BeTrue())
			Expect(reqErr.Status).To(Equal(http.StatusBadRequest))
			Expect(reqErr.Body).To(ContainSubstring("mask required"))
		})
	})
})
