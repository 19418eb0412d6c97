package knowledgebase_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/spec-kit/expert-desk/internal/knowledgebase"
)

var _ = Describe("HTTPClient", func() {
	var (
		server   *httptest.Server
		path     string
		auth     string
		body     map[string]any
		status   int
		response string
		delay    time.Duration
		client   knowledgebase.Client
	)

	BeforeEach(func() {
		status = http.StatusOK
		delay = 0
		response = `{"answers":[{"id":7,"answer":"Use the portal.","questions":["vpn"],"score":91.5,"context":{"isContextOnly":false,"prompts":[{"displayOrder":1,"qnaId":8,"displayText":"Reset steps"}]}}]}`

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			auth = r.Header.Get("Authorization")
			raw, _ := io.ReadAll(r.Body)
			body = nil
			_ = json.Unmarshal(raw, &body)
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
				}
			}
			w.WriteHeader(status)
			_, _ = io.WriteString(w, response)
		}))
		DeferCleanup(server.Close)

		var err error
		client, err = knowledgebase.NewHTTPClient(knowledgebase.Config{
			Endpoint:       server.URL + "/",
			KnowledgeBase:  "kb-1",
			EndpointKey:    "key-1",
			ScoreThreshold: 50,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("asks for the single best answer", func() {
		result, err := client.GenerateAnswer(context.Background(), knowledgebase.Query{Question: "vpn"})
		Expect(err).NotTo(HaveOccurred())

		Expect(path).To(Equal("/qnamaker/knowledgebases/kb-1/generateAnswer"))
		Expect(auth).To(Equal("EndpointKey key-1"))
		Expect(body).To(HaveKeyWithValue("question", "vpn"))
		Expect(body).To(HaveKeyWithValue("top", BeNumerically("==", 1)))
		Expect(body).To(HaveKeyWithValue("scoreThreshold", BeNumerically("==", 50)))
		Expect(body).NotTo(HaveKey("context"))

		top, ok := result.Top()
		Expect(ok).To(BeTrue())
		Expect(top.ID).To(Equal(7))
		Expect(top.IsNoMatch()).To(BeFalse())
		Expect(top.Prompts()).To(Equal([]knowledgebase.Prompt{{DisplayOrder: 1, QnAID: 8, DisplayText: "Reset steps"}}))
	})

	It("sends the previous turn for follow-ups", func() {
		_, err := client.GenerateAnswer(context.Background(), knowledgebase.Query{
			Question:          "reset steps",
			IsFollowUp:        true,
			PreviousQnAID:     "7",
			PreviousUserQuery: "vpn",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(HaveKeyWithValue("context", map[string]any{
			"previousQnAId":     "7",
			"previousUserQuery": "vpn",
		}))
	})

	It("recognizes the no-match sentinel", func() {
		response = `{"answers":[{"id":-1,"answer":"No good match found in KB.","score":0}]}`

		result, err := client.GenerateAnswer(context.Background(), knowledgebase.Query{Question: "quantum"})
		Expect(err).NotTo(HaveOccurred())
		top, ok := result.Top()
		Expect(ok).To(BeTrue())
		Expect(top.IsNoMatch()).To(BeTrue())
		Expect(top.Prompts()).To(BeEmpty())
	})

	It("fails on error statuses", func() {
		status = http.StatusUnauthorized
		response = `{"error":{"code":"Unauthorized"}}`

		_, err := client.GenerateAnswer(context.Background(), knowledgebase.Query{Question: "vpn"})
		Expect(err).To(MatchError(ContainSubstring("status 401")))
	})

	It("stops waiting once the context deadline passes", func() {
		delay = 500 * time.Millisecond
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := client.GenerateAnswer(ctx, knowledgebase.Query{Question: "vpn"})
		Expect(err).To(HaveOccurred())
		Expect(time.Since(start)).To(BeNumerically("<", 400*time.Millisecond))
	})

	It("requires an endpoint and knowledge base id", func() {
		_, err := knowledgebase.NewHTTPClient(knowledgebase.Config{Endpoint: "https://kb"})
		Expect(err).To(HaveOccurred())
		_, err = knowledgebase.NewHTTPClient(knowledgebase.Config{KnowledgeBase: "kb-1"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Result", func() {
	It("has no top answer when empty", func() {
		var nilResult *knowledgebase.Result
		_, ok := nilResult.Top()
		Expect(ok).To(BeFalse())
		_, ok = (&knowledgebase.Result{}).Top()
		Expect(ok).To(BeFalse())
	})
})
