package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Podtech-AI/tabichan-go/domain"
	"github.com/Podtech-AI/tabichan-go/rest"
	"github.com/containerd/errdefs"
	"github.com/go-chi/chi/v5"
)

// fakeDoer answers every call with the next scripted poll result.
type fakeDoer struct {
	mu       sync.Mutex
	requests []rest.Request
	results  []domain.PollResult
	err      error
}

func (f *fakeDoer) Do(_ context.Context, req rest.Request) (*rest.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	body, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	return &rest.Response{StatusCode: http.StatusOK, Status: "OK", Body: body}, nil
}

func (f *fakeDoer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestPoller(doer rest.Doer) (*Poller, *[]time.Duration) {
	var slept []time.Duration
	p := NewPoller(doer)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return p, &slept
}

func TestWaitTimesOutAfterExactlyMaxAttempts(t *testing.T) {
	doer := &fakeDoer{results: []domain.PollResult{{Status: domain.JobStatusRunning}}}
	p, slept := newTestPoller(doer)

	_, err := p.Wait(context.Background(), "t-1")
	if !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
	if doer.calls() != MaxAttempts {
		t.Errorf("expected %d polls, got %d", MaxAttempts, doer.calls())
	}
	if len(*slept) != MaxAttempts-1 {
		t.Errorf("expected %d sleeps, got %d", MaxAttempts-1, len(*slept))
	}
	for _, d := range *slept {
		if d != PollInterval {
			t.Fatalf("expected %v interval, got %v", PollInterval, d)
		}
	}
	if !Retryable(err) {
		t.Error("poll timeout should be retryable")
	}
	if !errdefs.IsDeadlineExceeded(err) {
		t.Error("poll timeout should be classified as deadline exceeded")
	}
}

func TestWaitUnexpectedStatus(t *testing.T) {
	for _, status := range []domain.JobStatus{"queued", "cancelled", ""} {
		doer := &fakeDoer{results: []domain.PollResult{{Status: status}}}
		p, _ := newTestPoller(doer)

		_, err := p.Wait(context.Background(), "t-1")
		var use *UnexpectedStatusError
		if !errors.As(err, &use) {
			t.Fatalf("status %q: expected UnexpectedStatusError, got %v", status, err)
		}
		if use.Status != status {
			t.Errorf("expected status %q, got %q", status, use.Status)
		}
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Error("expected ErrUnexpectedStatus in chain")
		}
		if !strings.Contains(err.Error(), "unexpected status: "+string(status)) {
			t.Errorf("unexpected message %q", err.Error())
		}
		if doer.calls() != 1 {
			t.Errorf("expected a single poll, got %d", doer.calls())
		}
		if Retryable(err) {
			t.Error("unexpected status must not be retryable")
		}
	}
}

func TestWaitGenerationFailed(t *testing.T) {
	cases := []struct {
		name    string
		errText string
		want    string
	}{
		{"without detail", "", UnknownErrorText},
		{"with detail", "X", "X"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doer := &fakeDoer{results: []domain.PollResult{
				{Status: domain.JobStatusRunning},
				{Status: domain.JobStatusFailed, Error: tc.errText},
			}}
			p, _ := newTestPoller(doer)

			_, err := p.Wait(context.Background(), "t-1")
			var ge *GenerationError
			if !errors.As(err, &ge) {
				t.Fatalf("expected GenerationError, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected %q in %q", tc.want, err.Error())
			}
			if errors.Is(err, ErrPollFailed) {
				t.Error("a failed status must not be reported as a poll failure")
			}
			if Retryable(err) {
				t.Error("generation failure must not be retryable")
			}
			if doer.calls() != 2 {
				t.Errorf("expected 2 polls, got %d", doer.calls())
			}
		})
	}
}

func TestWaitWrapsTransportFailure(t *testing.T) {
	cause := &rest.TransportError{Method: http.MethodGet, Path: "/chat/poll", Response: &rest.Response{StatusCode: 500, Status: "Internal Server Error"}}
	doer := &fakeDoer{err: cause}
	p, _ := newTestPoller(doer)

	_, err := p.Wait(context.Background(), "t-1")
	if !errors.Is(err, ErrPollFailed) {
		t.Fatalf("expected ErrPollFailed, got %v", err)
	}
	var te *rest.TransportError
	if !errors.As(err, &te) {
		t.Fatal("expected the transport error to be preserved")
	}
	if err.Error() != "failed to poll status: HTTP 500: Internal Server Error" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !Retryable(err) {
		t.Error("poll failure should be retryable")
	}
	if doer.calls() != 1 {
		t.Errorf("poll must not be retried, got %d calls", doer.calls())
	}
}

func TestWaitStopsWhenContextCanceled(t *testing.T) {
	doer := &fakeDoer{results: []domain.PollResult{{Status: domain.JobStatusRunning}}}
	p := NewPoller(doer)

	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	_, err := p.Wait(ctx, "t-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if doer.calls() != 1 {
		t.Errorf("expected 1 poll, got %d", doer.calls())
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("sleepContext failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// tokyoServer scripts the start/poll exchange for a single job.
func tokyoServer(t *testing.T) (*httptest.Server, *domain.StartChatRequest) {
	t.Helper()

	var (
		mu    sync.Mutex
		start domain.StartChatRequest
		polls int
	)

	r := chi.NewRouter()
	r.Post("/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if err := json.NewDecoder(r.Body).Decode(&start); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(domain.StartChatResponse{TaskID: "t-1"})
	})
	r.Get("/v1/chat/poll", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.URL.Query().Get("task_id") != "t-1" {
			http.Error(w, "unknown task", http.StatusNotFound)
			return
		}
		polls++
		if polls == 1 {
			_, _ = w.Write([]byte(`{"status":"running"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"completed","result":{"answer":"..."}}`))
	})
	r.Get("/v1/image", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.ImageResponse{Base64: r.URL.Query().Get("id") + ":" + r.URL.Query().Get("country")})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &start
}

func TestStartAndWaitTokyoScenario(t *testing.T) {
	srv, start := tokyoServer(t)
	p, slept := newTestPoller(rest.New("test-api-key", rest.WithBaseURL(srv.URL+"/v1")))

	taskID, err := p.Start(context.Background(), "Plan a 2-day trip to Tokyo", "user123", domain.CountryJapan, nil, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if taskID != "t-1" {
		t.Fatalf("expected task t-1, got %q", taskID)
	}
	if start.UserQuery != "Plan a 2-day trip to Tokyo" || start.UserID != "user123" || start.Country != domain.CountryJapan {
		t.Errorf("unexpected start body: %+v", start)
	}
	if start.History == nil || start.AdditionalInputs == nil {
		t.Error("expected history and additional inputs to be sent as empty values")
	}

	var progress []Progress
	result, err := p.Wait(context.Background(), taskID, WithVerbose(), WithProgress(func(pr Progress) {
		progress = append(progress, pr)
	}))
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(result, &got); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if got["answer"] != "..." {
		t.Errorf("unexpected result %s", result)
	}
	if len(progress) != 1 || progress[0].Attempt != 1 || progress[0].MaxAttempts != MaxAttempts {
		t.Errorf("expected a single 1/%d progress report, got %+v", MaxAttempts, progress)
	}
	if len(*slept) != 1 {
		t.Errorf("expected one pause between polls, got %d", len(*slept))
	}
}

func TestStartDefaultsCountry(t *testing.T) {
	srv, start := tokyoServer(t)
	p := NewPoller(rest.New("key", rest.WithBaseURL(srv.URL+"/v1")))

	if _, err := p.Start(context.Background(), "q", "u", "", nil, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if start.Country != domain.CountryJapan {
		t.Errorf("expected default country japan, got %q", start.Country)
	}
}

func TestPollUnknownTask(t *testing.T) {
	srv, _ := tokyoServer(t)
	p := NewPoller(rest.New("key", rest.WithBaseURL(srv.URL+"/v1")))

	_, err := p.Poll(context.Background(), "nope")
	var te *rest.TransportError
	if !errors.As(err, &te) || te.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected 404 TransportError, got %v", err)
	}
}

func TestImage(t *testing.T) {
	srv, _ := tokyoServer(t)
	p := NewPoller(rest.New("key", rest.WithBaseURL(srv.URL+"/v1")))

	got, err := p.Image(context.Background(), "img-1", domain.CountryFrance)
	if err != nil {
		t.Fatalf("Image failed: %v", err)
	}
	if got != "img-1:france" {
		t.Errorf("unexpected image payload %q", got)
	}
}
