package imagegen_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/akarpov/wortkarte/internal/httpx"
	"github.com/akarpov/wortkarte/internal/imagegen"
	"github.com/akarpov/wortkarte/pkg/logger"
)

func imagegenTestLogger() *logger.Logger {
	log := logger.New(
		logger.WithOutput(GinkgoWriter),
		logger.WithPrefix("[imagegen-test] "),
		logger.WithFlags(0),
	)
	log.SetVerbose(true)
	log.SetLevel(logger.LevelTrace)
	return log
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

var _ = Describe("Poller", func() {
	var (
		poller *imagegen.Poller
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		poller = &imagegen.Poller{
			Interval: time.Millisecond,
			Timeout:  time.Second,
			Logger:   imagegenTestLogger(),
			Sleep:    noSleep,
		}
	})

	Context("when the task completes after a few checks", func() {
		It("should return the terminal payload", func() {
			checks := 0
			status := func(ctx context.Context, requestID string) (map[string]any, error) {
				checks++
				if checks < 3 {
					return map[string]any{"status": "processing"}, nil
				}
				return map[string]any{
					"status": "success",
					"result": map[string]any{"images": []any{map[string]any{"url": "https://img.example/x.png"}}},
				}, nil
			}

			data, err := poller.Poll(ctx, "task-1", status)
			Expect(err).NotTo(HaveOccurred())
			Expect(checks).To(Equal(3))
			Expect(data["status"]).To(Equal("success"))
		})
	})

	Context("when the task fails", func() {
		It("should report a task failure carrying the diagnostic payload", func() {
			status := func(ctx context.Context, requestID string) (map[string]any, error) {
				return map[string]any{"status": "failed", "error": "nsfw filter"}, nil
			}

			_, err := poller.Poll(ctx, "task-2", status)
			Expect(err).To(HaveOccurred())
			Expect(httpx.ErrorCode(err)).To(Equal(httpx.CodeTaskFailed))
		})
	})

	Context("when the deadline passes", func() {
		It("should stop polling and report a timeout", func() {
			poller.Timeout = 10 * time.Millisecond
			poller.Sleep = func(ctx context.Context, d time.Duration) error {
				time.Sleep(15 * time.Millisecond)
				return nil
			}

			checks := 0
			status := func(ctx context.Context, requestID string) (map[string]any, error) {
				checks++
				return map[string]any{"status": "processing"}, nil
			}

			_, err := poller.Poll(ctx, "task-3", status)
			Expect(err).To(HaveOccurred())
			Expect(httpx.ErrorCode(err)).To(Equal(httpx.CodeTaskFailed))
			Expect(err.Error()).To(ContainSubstring("timed out"))
			Expect(checks).To(Equal(1))
		})
	})

	Context("when a status check fails at the transport level", func() {
		It("should give up immediately", func() {
			checks := 0
			status := func(ctx context.Context, requestID string) (map[string]any, error) {
				checks++
				return nil, fmt.Errorf("connection refused")
			}

			_, err := poller.Poll(ctx, "task-4", status)
			Expect(err).To(MatchError("connection refused"))
			Expect(checks).To(Equal(1))
		})
	})

	Context("when the provider reports an unknown status", func() {
		It("should fail rather than loop forever", func() {
			status := func(ctx context.Context, requestID string) (map[string]any, error) {
				return map[string]any{"status": "paused"}, nil
			}

			_, err := poller.Poll(ctx, "task-5", status)
			Expect(err).To(HaveOccurred())
			Expect(httpx.ErrorCode(err)).To(Equal(httpx.CodeTaskFailed))
			Expect(err.Error()).To(ContainSubstring("unknown status"))
		})
	})
})
