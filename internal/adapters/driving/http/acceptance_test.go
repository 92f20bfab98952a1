package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/extractors"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
	"github.com/custodia-labs/sercha-rag/internal/worker"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// apiFeature drives a server wired to real services and mock AI backends
type apiFeature struct {
	server *Server
	worker *worker.Worker
	ai     *mocks.MockAIFactory

	response *httptest.ResponseRecorder
}

func initializeScenario(sc *godog.ScenarioContext) {
	f := &apiFeature{}

	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if f.worker != nil {
			_ = f.worker.Stop(5 * time.Second)
		}
		return ctx, err
	})

	sc.Step(`^the service is running with an empty knowledge base$`, f.theServiceIsRunning)
	sc.Step(`^the embedding service is failing$`, f.theEmbeddingServiceIsFailing)
	sc.Step(`^a document "([^"]*)" containing "([^"]*)" has been ingested$`, f.aDocumentHasBeenIngested)
	sc.Step(`^I upload "([^"]*)" containing "([^"]*)" using "([^"]*)"$`, f.iUpload)
	sc.Step(`^I ask "([^"]*)" using "([^"]*)"$`, f.iAsk)
	sc.Step(`^I clear the knowledge base$`, f.iClearTheKnowledgeBase)
	sc.Step(`^the response status should be (\d+)$`, f.theResponseStatusShouldBe)
	sc.Step(`^the response error should be "([^"]*)"$`, f.theResponseErrorShouldBe)
	sc.Step(`^the job should finish with status "([^"]*)"$`, f.theJobShouldFinishWithStatus)
	sc.Step(`^the job status should be "([^"]*)"$`, f.theJobStatusShouldBe)
	sc.Step(`^the knowledge base should hold (\d+) chunks$`, f.theKnowledgeBaseShouldHold)
	sc.Step(`^the job log should contain "([^"]*)"$`, f.theJobLogShouldContain)
	sc.Step(`^the answer should be "([^"]*)"$`, f.theAnswerShouldBe)
	sc.Step(`^the answer should cite (\d+) sources$`, f.theAnswerShouldCite)
	sc.Step(`^no AI service should have been called$`, f.noAIServiceShouldHaveBeenCalled)
}

func (f *apiFeature) theServiceIsRunning() error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pipeline, err := postprocessors.NewDefaultPipeline(postprocessors.DefaultChunkConfig(), true)
	if err != nil {
		return err
	}
	w, err := worker.New(worker.Config{Logger: logger})
	if err != nil {
		return err
	}

	store := memory.NewKnowledgeStore()
	lock := memory.NewLock()
	f.ai = mocks.NewMockAIFactory()
	f.worker = w

	ingestion := services.NewIngestionService(services.IngestionServiceConfig{
		Extractors: extractors.DefaultRegistry(),
		Pipeline:   pipeline,
		Store:      store,
		AI:         f.ai,
		Lock:       lock,
		Worker:     w,
		Logger:     logger,
	})
	answer := services.NewAnswerService(services.AnswerServiceConfig{
		Store:  store,
		AI:     f.ai,
		Logger: logger,
	})

	cfg := DefaultConfig()
	cfg.UploadDir = ""
	cfg.Logger = logger
	cfg.Worker = w
	f.server = NewServer(cfg, ingestion, answer, lock)
	return nil
}

func (f *apiFeature) theEmbeddingServiceIsFailing() error {
	f.ai.Embedding.SetFailNext(true)
	return nil
}

func (f *apiFeature) aDocumentHasBeenIngested(name, content string) error {
	if err := f.iUpload(name, content, "http://ollama:11434"); err != nil {
		return err
	}
	if err := f.theResponseStatusShouldBe(http.StatusAccepted); err != nil {
		return err
	}
	return f.theJobShouldFinishWithStatus(string(domain.JobStatusDone))
}

func (f *apiFeature) iUpload(name, content, baseURL string) error {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("pdf", name)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(part, content); err != nil {
		return err
	}
	if err := mw.WriteField("ollama_url", baseURL); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req := httptest.NewRequest("POST", "/process", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	f.do(req)
	return nil
}

func (f *apiFeature) iAsk(question, baseURL string) error {
	payload, err := json.Marshal(domain.AskRequest{BaseURL: baseURL, Question: question})
	if err != nil {
		return err
	}
	f.do(httptest.NewRequest("POST", "/ask", bytes.NewReader(payload)))
	return nil
}

func (f *apiFeature) iClearTheKnowledgeBase() error {
	f.do(httptest.NewRequest("POST", "/clear", nil))
	return nil
}

func (f *apiFeature) theResponseStatusShouldBe(status int) error {
	if f.response.Code != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, f.response.Code, f.response.Body.String())
	}
	return nil
}

func (f *apiFeature) theResponseErrorShouldBe(message string) error {
	var body ErrorResponse
	if err := json.Unmarshal(f.response.Body.Bytes(), &body); err != nil {
		return err
	}
	if body.Error != message {
		return fmt.Errorf("expected error %q, got %q", message, body.Error)
	}
	return nil
}

func (f *apiFeature) theJobShouldFinishWithStatus(status string) error {
	deadline := time.Now().Add(5 * time.Second)
	for {
		current, err := f.status()
		if err != nil {
			return err
		}
		if current.JobStatus.IsTerminal() {
			if string(current.JobStatus) != status {
				return fmt.Errorf("expected job to finish %s, got %s: %v", status, current.JobStatus, current.Logs)
			}
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("job still %s after 5s", current.JobStatus)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func (f *apiFeature) theJobStatusShouldBe(status string) error {
	current, err := f.status()
	if err != nil {
		return err
	}
	if string(current.JobStatus) != status {
		return fmt.Errorf("expected job status %s, got %s", status, current.JobStatus)
	}
	return nil
}

func (f *apiFeature) theKnowledgeBaseShouldHold(chunks int) error {
	current, err := f.status()
	if err != nil {
		return err
	}
	if current.Chunks != chunks {
		return fmt.Errorf("expected %d chunks, got %d", chunks, current.Chunks)
	}
	return nil
}

func (f *apiFeature) theJobLogShouldContain(text string) error {
	current, err := f.status()
	if err != nil {
		return err
	}
	for _, line := range current.Logs {
		if strings.Contains(line, text) {
			return nil
		}
	}
	return fmt.Errorf("no log line contains %q: %v", text, current.Logs)
}

func (f *apiFeature) theAnswerShouldBe(expected string) error {
	answer, err := f.answer()
	if err != nil {
		return err
	}
	if answer.Answer != expected {
		return fmt.Errorf("expected answer %q, got %q", expected, answer.Answer)
	}
	return nil
}

func (f *apiFeature) theAnswerShouldCite(count int) error {
	answer, err := f.answer()
	if err != nil {
		return err
	}
	if len(answer.Sources) != count {
		return fmt.Errorf("expected %d sources, got %d", count, len(answer.Sources))
	}
	return nil
}

func (f *apiFeature) noAIServiceShouldHaveBeenCalled() error {
	if urls := f.ai.BaseURLs(); len(urls) != 0 {
		return fmt.Errorf("expected no AI calls, got %v", urls)
	}
	return nil
}

func (f *apiFeature) do(req *http.Request) {
	f.response = httptest.NewRecorder()
	f.server.Handler().ServeHTTP(f.response, req)
}

// status reads /status without replacing the last response
func (f *apiFeature) status() (*domain.IngestionStatus, error) {
	rr := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/status", nil))
	if rr.Code != http.StatusOK {
		return nil, fmt.Errorf("status returned %d", rr.Code)
	}
	var status domain.IngestionStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (f *apiFeature) answer() (*domain.Answer, error) {
	var answer domain.Answer
	if err := json.Unmarshal(f.response.Body.Bytes(), &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}
