package text_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/akarpov/wortkarte/internal/chat"
	"github.com/akarpov/wortkarte/internal/httpx"
	"github.com/akarpov/wortkarte/internal/text"
	"github.com/akarpov/wortkarte/pkg/logger"
)

type scriptedProvider struct {
	responses []string
	err       error
	calls     int
	lastUser  string
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []chat.Message) (string, error) {
	p.calls++
	if len(messages) > 0 {
		p.lastUser = messages[len(messages)-1].Content
	}
	if p.err != nil {
		return "", p.err
	}
	idx := p.calls - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return p.responses[idx], nil
}

type mapCache struct {
	data map[string]string
	sets int
}

func (c *mapCache) Get(key string) (string, bool) {
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Set(key, value string) error {
	c.data[key] = value
	c.sets++
	return nil
}

func textTestLogger() *logger.Logger {
	log := logger.New(
		logger.WithOutput(GinkgoWriter),
		logger.WithPrefix("[text-test] "),
		logger.WithFlags(0),
	)
	log.SetVerbose(true)
	return log
}

var _ = Describe("ContainsTargetWord", func() {
	It("should match after diacritic normalization", func() {
		Expect(text.ContainsTargetWord("Straße", "Die Strasse ist breit.")).To(BeTrue())
	})

	It("should match regardless of case", func() {
		Expect(text.ContainsTargetWord("Hund", "Der HUND schläft.")).To(BeTrue())
	})

	It("should not match substrings of longer words", func() {
		Expect(text.ContainsTargetWord("Hund", "Hundert Leute kommen.")).To(BeFalse())
	})

	It("should match at sentence boundaries", func() {
		Expect(text.ContainsTargetWord("Hund", "Hund ist treu")).To(BeTrue())
		Expect(text.ContainsTargetWord("Hund", "Da ist ein Hund")).To(BeTrue())
	})

	It("should not match absent words", func() {
		Expect(text.ContainsTargetWord("Katze", "Der Hund schläft.")).To(BeFalse())
	})

	It("should reject empty target words", func() {
		Expect(text.ContainsTargetWord("", "Der Hund schläft.")).To(BeFalse())
	})
})

var _ = Describe("GenerateSentence", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("when the first candidate contains the word", func() {
		It("should return it cleaned, after one attempt", func() {
			provider := &scriptedProvider{responses: []string{`"Der  Hund   schläft."`}}
			svc := text.NewService(provider, nil, textTestLogger())

			sentence, err := svc.GenerateSentence(ctx, "Hund")
			Expect(err).NotTo(HaveOccurred())
			Expect(sentence).To(Equal("Der Hund schläft."))
			Expect(provider.calls).To(Equal(1))
		})
	})

	Context("when only the third candidate contains the word", func() {
		It("should retry and return the third", func() {
			provider := &scriptedProvider{responses: []string{
				"Die Katze schläft gern.",
				"Hundert Leute kommen heute.",
				"Der Hund rennt zum Park.",
			}}
			svc := text.NewService(provider, nil, textTestLogger())

			sentence, err := svc.GenerateSentence(ctx, "Hund")
			Expect(err).NotTo(HaveOccurred())
			Expect(sentence).To(Equal("Der Hund rennt zum Park."))
			Expect(provider.calls).To(Equal(3))
		})
	})

	Context("when no candidate contains the word", func() {
		It("should fail with a validation error after exactly three attempts", func() {
			provider := &scriptedProvider{responses: []string{
				"Die Katze schläft.",
				"Die Katze rennt.",
				"Die Katze frisst.",
			}}
			svc := text.NewService(provider, nil, textTestLogger())

			_, err := svc.GenerateSentence(ctx, "Hund")
			Expect(err).To(HaveOccurred())
			Expect(provider.calls).To(Equal(3))
			Expect(httpx.ErrorCode(err)).To(Equal(httpx.CodeValidation))

			var vErr *httpx.Error
			Expect(errors.As(err, &vErr)).To(BeTrue())
			Expect(vErr.Details["word"]).To(Equal("Hund"))
			Expect(vErr.Details["last_sentence"]).To(Equal("Die Katze frisst."))
		})
	})

	Context("when the provider fails", func() {
		It("should propagate the error without retrying", func() {
			provider := &scriptedProvider{err: fmt.Errorf("boom")}
			svc := text.NewService(provider, nil, textTestLogger())

			_, err := svc.GenerateSentence(ctx, "Hund")
			Expect(err).To(MatchError("boom"))
			Expect(provider.calls).To(Equal(1))
		})
	})
})

var _ = Describe("Translate", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("should clean quotes and whitespace from the result", func() {
		provider := &scriptedProvider{responses: []string{`"собака"`}}
		svc := text.NewService(provider, nil, textTestLogger())

		translated, err := svc.Translate(ctx, "Hund", "de", "ru")
		Expect(err).NotTo(HaveOccurred())
		Expect(translated).To(Equal("собака"))
		Expect(provider.lastUser).To(Equal("Hund"))
	})

	Context("with a cache", func() {
		It("should store the translation and skip the provider on repeat", func() {
			provider := &scriptedProvider{responses: []string{"собака"}}
			cache := &mapCache{data: map[string]string{}}
			svc := text.NewService(provider, cache, textTestLogger())

			first, err := svc.Translate(ctx, "Hund", "de", "ru")
			Expect(err).NotTo(HaveOccurred())

			second, err := svc.Translate(ctx, "Hund", "de", "ru")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))
			Expect(provider.calls).To(Equal(1))
			Expect(cache.sets).To(Equal(1))
		})
	})
})
