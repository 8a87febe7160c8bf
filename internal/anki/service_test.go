package anki_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/akarpov/wortkarte/internal/anki"
	"github.com/akarpov/wortkarte/internal/httpx"
	"github.com/akarpov/wortkarte/pkg/logger"
)

type connectCall struct {
	Action  string          `json:"action"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

// fakeConnect is a minimal AnkiConnect stand-in that records every
// action it receives.
type fakeConnect struct {
	calls   []connectCall
	answers map[string]string
}

func (f *fakeConnect) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var call connectCall
	json.NewDecoder(r.Body).Decode(&call)
	f.calls = append(f.calls, call)

	answer, ok := f.answers[call.Action]
	if !ok {
		answer = `{"result": null, "error": "unsupported action"}`
	}
	w.Write([]byte(answer))
}

func (f *fakeConnect) actions() []string {
	names := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		names = append(names, c.Action)
	}
	return names
}

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		connect *fakeConnect
		server  *httptest.Server
		service *anki.Service
	)

	newLogger := func() *logger.Logger {
		return logger.New(logger.WithOutput(GinkgoWriter))
	}

	BeforeEach(func() {
		ctx = context.Background()
		connect = &fakeConnect{answers: map[string]string{
			"version":        `{"result": 6, "error": null}`,
			"createDeck":     `{"result": 1693213456, "error": null}`,
			"storeMediaFile": `{"result": "img_cafe.png", "error": null}`,
			"addNote":        `{"result": 42, "error": null}`,
		}}
		server = httptest.NewServer(connect)
		service = anki.NewService(httpx.NewClient(newLogger()), server.URL, newLogger(), httpx.Options{
			Timeout:     5 * time.Second,
			BackoffBase: time.Millisecond,
		})
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("CheckConnection", func() {
		It("should succeed against a live endpoint", func() {
			Expect(service.CheckConnection(ctx)).To(Succeed())
			Expect(connect.actions()).To(Equal([]string{"version"}))
			Expect(connect.calls[0].Version).To(Equal(6))
		})

		It("should explain how to fix an unreachable Anki", func() {
			server.Close()
			err := service.CheckConnection(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("Anki is running"))
		})

		It("should use the configured retry policy", func() {
			attempts := 0
			flaky := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts++
				if attempts == 1 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				w.Write([]byte(`{"result": 6, "error": null}`))
			}))
			defer flaky.Close()

			svc := anki.NewService(httpx.NewClient(newLogger()), flaky.URL, newLogger(), httpx.Options{
				Retries:     2,
				BackoffBase: time.Millisecond,
			})
			Expect(svc.CheckConnection(ctx)).To(Succeed())
			Expect(attempts).To(Equal(2))
		})
	})

	Describe("CreateDeck", func() {
		It("should send the deck name", func() {
			Expect(service.CreateDeck(ctx, "Deutsch")).To(Succeed())

			var params map[string]string
			Expect(json.Unmarshal(connect.calls[0].Params, &params)).To(Succeed())
			Expect(params["deck"]).To(Equal("Deutsch"))
		})
	})

	Describe("StoreMediaFile", func() {
		It("should upload base64 content and return the stored name", func() {
			path := filepath.Join(GinkgoT().TempDir(), "img_cafe.png")
			Expect(os.WriteFile(path, []byte("fake image"), 0644)).To(Succeed())

			name, err := service.StoreMediaFile(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("img_cafe.png"))

			var params map[string]string
			Expect(json.Unmarshal(connect.calls[0].Params, &params)).To(Succeed())
			Expect(params["filename"]).To(Equal("img_cafe.png"))
			Expect(params["data"]).To(Equal(base64.StdEncoding.EncodeToString([]byte("fake image"))))
		})

		It("should fail for a missing file without calling the API", func() {
			_, err := service.StoreMediaFile(ctx, "/nonexistent/img.png")
			Expect(err).To(HaveOccurred())
			Expect(connect.calls).To(BeEmpty())
		})
	})

	Describe("AddNote", func() {
		noteParams := func(call connectCall) anki.Note {
			var params struct {
				Note anki.Note `json:"note"`
			}
			Expect(json.Unmarshal(call.Params, &params)).To(Succeed())
			return params.Note
		}

		It("should create a basic note and return its id", func() {
			id, err := service.AddNote(ctx, "Hund", "<div>Собака</div>", "Deutsch", []string{"wortkarte"}, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(int64(42)))
			Expect(connect.actions()).To(Equal([]string{"addNote"}))

			note := noteParams(connect.calls[0])
			Expect(note.DeckName).To(Equal("Deutsch"))
			Expect(note.ModelName).To(Equal("Basic"))
			Expect(note.Fields["Front"]).To(Equal("Hund"))
			Expect(note.Fields["Back"]).To(Equal("<div>Собака</div>"))
			Expect(note.Tags).To(Equal([]string{"wortkarte"}))
			Expect(note.Options["allowDuplicate"]).To(Equal(false))
		})

		It("should send an empty tag list instead of null", func() {
			_, err := service.AddNote(ctx, "Hund", "back", "Deutsch", nil, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(strings.Contains(string(connect.calls[0].Params), `"tags":[]`)).To(BeTrue())
		})

		It("should upload media first and append the image tag", func() {
			path := filepath.Join(GinkgoT().TempDir(), "img_cafe.png")
			Expect(os.WriteFile(path, []byte("fake image"), 0644)).To(Succeed())

			id, err := service.AddNote(ctx, "Hund", "<div>Собака</div>", "Deutsch", nil, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal(int64(42)))
			Expect(connect.actions()).To(Equal([]string{"storeMediaFile", "addNote"}))

			note := noteParams(connect.calls[1])
			Expect(note.Fields["Back"]).To(Equal(`<div>Собака</div><br><img src="img_cafe.png">`))
		})

		It("should not append a second image tag to pre-built markup", func() {
			path := filepath.Join(GinkgoT().TempDir(), "img_cafe.png")
			Expect(os.WriteFile(path, []byte("fake image"), 0644)).To(Succeed())

			back := `<div>Собака</div><br><img src="img_cafe.png">`
			_, err := service.AddNote(ctx, "Hund", back, "Deutsch", nil, path)
			Expect(err).NotTo(HaveOccurred())

			// The upload still happens; only the markup stays untouched.
			Expect(connect.actions()).To(Equal([]string{"storeMediaFile", "addNote"}))
			note := noteParams(connect.calls[1])
			Expect(strings.Count(note.Fields["Back"], "<img")).To(Equal(1))
		})

		It("should classify an AnkiConnect error as a note API failure", func() {
			connect.answers["addNote"] = `{"result": null, "error": "cannot create note because it is a duplicate"}`

			_, err := service.AddNote(ctx, "Hund", "back", "Deutsch", nil, "")
			Expect(httpx.ErrorCode(err)).To(Equal(httpx.CodeNoteAPI))
			Expect(err.Error()).To(ContainSubstring("duplicate"))
		})
	})
})
