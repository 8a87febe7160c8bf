package chat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/akarpov/wortkarte/internal/chat"
	"github.com/akarpov/wortkarte/internal/httpx"
	"github.com/akarpov/wortkarte/pkg/logger"
)

var _ = Describe("Client", func() {
	var ctx context.Context

	newLogger := func() *logger.Logger {
		return logger.New(logger.WithOutput(GinkgoWriter))
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("NewClient", func() {
		It("should require an API key", func() {
			_, err := chat.NewClient(httpx.NewClient(newLogger()), newLogger(), chat.Config{Model: "m"})
			Expect(httpx.ErrorCode(err)).To(Equal(httpx.CodeConfig))
		})

		It("should require a model", func() {
			_, err := chat.NewClient(httpx.NewClient(newLogger()), newLogger(), chat.Config{APIKey: "sk-abc"})
			Expect(httpx.ErrorCode(err)).To(Equal(httpx.CodeConfig))
		})
	})

	Describe("Chat", func() {
		It("should post the conversation and return the completion", func() {
			var gotAuth string
			var gotPayload map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotAuth = r.Header.Get("Authorization")
				json.NewDecoder(r.Body).Decode(&gotPayload)
				w.Write([]byte(`{
					"choices": [{"message": {"role": "assistant", "content": "Der Hund schläft."}}]
				}`))
			}))
			defer server.Close()

			client, err := chat.NewClient(httpx.NewClient(newLogger()), newLogger(), chat.Config{
				URL:    server.URL,
				APIKey: "sk-abc",
				Model:  "openai/gpt-4o-mini",
			})
			Expect(err).NotTo(HaveOccurred())

			out, err := client.Chat(ctx, []chat.Message{
				{Role: "system", Content: "Write one short sentence."},
				{Role: "user", Content: "Hund"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal("Der Hund schläft."))

			Expect(gotAuth).To(Equal("Bearer sk-abc"))
			Expect(gotPayload["model"]).To(Equal("openai/gpt-4o-mini"))
			Expect(gotPayload["max_tokens"]).To(Equal(float64(chat.DefaultMaxTokens)))

			messages, ok := gotPayload["messages"].([]any)
			Expect(ok).To(BeTrue())
			Expect(messages).To(HaveLen(2))
		})

		It("should honor the configured retry count and backoff", func() {
			attempts := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts++
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer server.Close()

			client, err := chat.NewClient(httpx.NewClient(newLogger()), newLogger(), chat.Config{
				URL:    server.URL,
				APIKey: "sk-abc",
				Model:  "m",
				HTTP: httpx.Options{
					Retries:     2,
					BackoffBase: time.Millisecond,
				},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Chat(ctx, []chat.Message{{Role: "user", Content: "Hund"}})
			Expect(httpx.ErrorCode(err)).To(Equal(httpx.CodeHTTPStatus))
			Expect(attempts).To(Equal(2))
		})

		It("should propagate transport failures", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": {"message": "bad key"}}`))
			}))
			defer server.Close()

			client, err := chat.NewClient(httpx.NewClient(newLogger()), newLogger(), chat.Config{
				URL:    server.URL,
				APIKey: "sk-abc",
				Model:  "m",
				HTTP:   httpx.Options{BackoffBase: time.Millisecond},
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Chat(ctx, []chat.Message{{Role: "user", Content: "Hund"}})
			Expect(httpx.ErrorCode(err)).To(Equal(httpx.CodeHTTPStatus))
		})
	})
})
