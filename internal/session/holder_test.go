package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go-image-grader/internal/ai"
	apperrors "go-image-grader/internal/errors"
	"go-image-grader/internal/observer"
	"go-image-grader/internal/service"
	"go-image-grader/pkg/models"
	"go-image-grader/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const decentReport = `{"score": 7, "summary": "Decent", "imageBreakdown": [{"src": "/img/hero.jpg", "findings": [{"type": "Warning", "title": "Large file", "description": "...", "recommendation": "Compress"}]}]}`

type recorder struct {
	mu     sync.Mutex
	events []observer.StateEvent
}

func (r *recorder) OnEvent(_ context.Context, e observer.StateEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) GetObserverName() string { return "recorder" }

func (r *recorder) types() []observer.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]observer.EventType, 0, len(r.events))
	for _, e := range r.events {
		if e.EventType != observer.ProgressUpdated {
			out = append(out, e.EventType)
		}
	}
	return out
}

func (r *recorder) snapshot() []observer.StateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]observer.StateEvent(nil), r.events...)
}

type outcome struct {
	report *models.AnalysisReport
	err    error
}

// gatedAnalyzer blocks every Analyze call for a URL until release is called
// for it. It ignores cancellation so late results can be observed.
type gatedAnalyzer struct {
	mu    sync.Mutex
	calls []string
	gates map[string]chan outcome
}

func newGatedAnalyzer() *gatedAnalyzer {
	return &gatedAnalyzer{gates: make(map[string]chan outcome)}
}

func (g *gatedAnalyzer) gate(url string) chan outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[url]
	if !ok {
		ch = make(chan outcome, 1)
		g.gates[url] = ch
	}
	return ch
}

func (g *gatedAnalyzer) Analyze(_ context.Context, url string) (*models.AnalysisReport, error) {
	g.mu.Lock()
	g.calls = append(g.calls, url)
	g.mu.Unlock()

	o := <-g.gate(url)
	return o.report, o.err
}

func (g *gatedAnalyzer) release(url string, o outcome) {
	g.gate(url) <- o
}

func (g *gatedAnalyzer) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func newTestHolder(t *testing.T, analyzer service.AnalysisService, opts Options) (*Holder, *recorder) {
	t.Helper()
	rec := &recorder{}
	pub := observer.NewEventPublisher()
	pub.Subscribe(rec)
	opts.Publisher = pub
	if opts.StatusInterval == 0 {
		opts.StatusInterval = time.Hour
	}

	h, err := NewHolder("test-session", analyzer, opts)
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h, rec
}

func waitFor(t *testing.T, h *Holder, gen uint64) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := h.Wait(ctx, gen)
	require.NoError(t, err)
	return st
}

func TestHolder_StartsIdle(t *testing.T) {
	h, _ := newTestHolder(t, service.NewAnalysisService(ai.NewMockGenerator(), nil), Options{})
	st := h.State()
	assert.Equal(t, StatusIdle, st.Status)
	assert.Zero(t, st.Generation)
	assert.Nil(t, st.Report)
}

func TestHolder_SuccessfulSubmission(t *testing.T) {
	gen := &ai.MockGenerator{Response: decentReport}
	h, rec := newTestHolder(t, service.NewAnalysisService(gen, nil), Options{})

	g, err := h.Submit("https://shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g)

	st := waitFor(t, h, g)
	require.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, &models.AnalysisReport{
		Score:   7,
		Summary: "Decent",
		ImageBreakdown: []models.ImageAnalysis{{
			Src: "/img/hero.jpg",
			Findings: []models.Finding{{
				Type:           models.FindingWarning,
				Title:          "Large file",
				Description:    "...",
				Recommendation: "Compress",
			}},
		}},
	}, st.Report)
	assert.Empty(t, st.Message)
	assert.Equal(t, 1, gen.Calls())

	events := rec.snapshot()
	require.Len(t, events, 2)
	assert.Equal(t, StatusLoading, events[0].State.Status)
	assert.Equal(t, StatusSuccess, events[1].State.Status)
}

func TestHolder_EmptyURLNeverLoads(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t"} {
		gen := ai.NewMockGenerator()
		h, rec := newTestHolder(t, service.NewAnalysisService(gen, nil), Options{})

		_, err := h.Submit(input)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

		st := h.State()
		assert.Equal(t, StatusError, st.Status)
		assert.Equal(t, "Please enter a valid URL.", st.Message)
		assert.Nil(t, st.Report)
		assert.Zero(t, gen.Calls())
		assert.Equal(t, []observer.EventType{observer.InputRejected}, rec.types())
	}
}

func TestHolder_EmptyURLClearsPreviousReport(t *testing.T) {
	h, _ := newTestHolder(t, service.NewAnalysisService(&ai.MockGenerator{Response: decentReport}, nil), Options{})

	g, err := h.Submit("https://shop.example.com")
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, waitFor(t, h, g).Status)

	_, err = h.Submit("")
	require.Error(t, err)
	st := h.State()
	assert.Equal(t, StatusError, st.Status)
	assert.Nil(t, st.Report)
}

func TestHolder_ValidatorRejectsBeforeLoading(t *testing.T) {
	gen := ai.NewMockGenerator()
	h, rec := newTestHolder(t, service.NewAnalysisService(gen, nil), Options{
		Validator: validation.NewStrictURLValidator(),
	})

	_, err := h.Submit("ftp://example.com/gallery")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	st := h.State()
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, apperrors.MsgInvalidURL, st.Message)
	assert.Zero(t, gen.Calls())
	assert.Equal(t, []observer.EventType{observer.InputRejected}, rec.types())

	g, err := h.Submit("https://example.com/gallery")
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, waitFor(t, h, g).Status)
}

func TestHolder_FailuresUseGenericMessage(t *testing.T) {
	tests := []struct {
		name string
		gen  *ai.MockGenerator
	}{
		{"network failure", &ai.MockGenerator{Err: errors.New("dial tcp 10.0.0.1:443: i/o timeout")}},
		{"non-JSON response", &ai.MockGenerator{Response: "I'm sorry, I can't do that."}},
		{"shallow validation failure", &ai.MockGenerator{Response: `{"score": "high", "summary": "x", "imageBreakdown": []}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, rec := newTestHolder(t, service.NewAnalysisService(tt.gen, nil), Options{})

			g, err := h.Submit("https://example.com")
			require.NoError(t, err)

			st := waitFor(t, h, g)
			assert.Equal(t, StatusError, st.Status)
			assert.Equal(t, "An error occurred during analysis. The URL may be invalid or the AI service is currently unavailable. Please try again.", st.Message)
			assert.Nil(t, st.Report)
			assert.Equal(t, []observer.EventType{observer.AnalysisStarted, observer.AnalysisFailed}, rec.types())
		})
	}
}

func TestHolder_LoadingPrecedesTerminalState(t *testing.T) {
	analyzer := newGatedAnalyzer()
	h, rec := newTestHolder(t, analyzer, Options{})

	g, err := h.Submit("https://example.com")
	require.NoError(t, err)

	// loading is visible as soon as Submit returns
	assert.Equal(t, StatusLoading, h.State().Status)

	analyzer.release("https://example.com", outcome{report: &models.AnalysisReport{Score: 9, Summary: "s", ImageBreakdown: []models.ImageAnalysis{}}})
	waitFor(t, h, g)

	assert.Equal(t, []observer.EventType{observer.AnalysisStarted, observer.AnalysisCompleted}, rec.types())
}

func TestHolder_SubmitClearsPreviousResult(t *testing.T) {
	analyzer := newGatedAnalyzer()
	h, rec := newTestHolder(t, analyzer, Options{})

	g1, err := h.Submit("https://a.example.com")
	require.NoError(t, err)
	analyzer.release("https://a.example.com", outcome{report: &models.AnalysisReport{Score: 8}})
	require.Equal(t, StatusSuccess, waitFor(t, h, g1).Status)

	g2, err := h.Submit("https://b.example.com")
	require.NoError(t, err)
	st := h.State()
	assert.Equal(t, StatusLoading, st.Status)
	assert.Nil(t, st.Report)
	assert.Empty(t, st.Message)

	analyzer.release("https://b.example.com", outcome{err: errors.New("boom")})
	require.Equal(t, StatusError, waitFor(t, h, g2).Status)

	g3, err := h.Submit("https://c.example.com")
	require.NoError(t, err)
	st = h.State()
	assert.Equal(t, StatusLoading, st.Status)
	assert.Empty(t, st.Message)
	analyzer.release("https://c.example.com", outcome{report: &models.AnalysisReport{Score: 3}})
	waitFor(t, h, g3)

	for _, e := range rec.snapshot() {
		if e.State.Status == StatusLoading {
			assert.Nil(t, e.State.Report)
			assert.Empty(t, e.State.Message)
		}
	}
}

func TestHolder_RejectPolicyTurnsAwayOverlap(t *testing.T) {
	analyzer := newGatedAnalyzer()
	h, rec := newTestHolder(t, analyzer, Options{Policy: OverlapReject})

	g1, err := h.Submit("https://first.example.com")
	require.NoError(t, err)

	g, err := h.Submit("https://second.example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRequestInFlight)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
	assert.Equal(t, g1, g)

	_, err = h.Submit("")
	assert.ErrorIs(t, err, ErrRequestInFlight)

	st := h.State()
	assert.Equal(t, StatusLoading, st.Status)
	assert.Equal(t, "https://first.example.com", st.URL)

	analyzer.release("https://first.example.com", outcome{report: &models.AnalysisReport{Score: 5}})
	assert.Equal(t, StatusSuccess, waitFor(t, h, g1).Status)
	assert.Equal(t, 1, analyzer.callCount())
	assert.Equal(t, []observer.EventType{
		observer.AnalysisStarted,
		observer.SubmitRejected,
		observer.SubmitRejected,
		observer.AnalysisCompleted,
	}, rec.types())
}

func TestHolder_LatestSubmissionWins(t *testing.T) {
	analyzer := newGatedAnalyzer()
	h, rec := newTestHolder(t, analyzer, Options{Policy: OverlapSupersede})

	g1, err := h.Submit("https://first.example.com")
	require.NoError(t, err)
	g2, err := h.Submit("https://second.example.com")
	require.NoError(t, err)
	assert.Equal(t, g1+1, g2)

	// the superseded generation no longer blocks waiters
	st := waitFor(t, h, g1)
	assert.Equal(t, g2, st.Generation)

	second := &models.AnalysisReport{Score: 9, Summary: "second"}
	analyzer.release("https://second.example.com", outcome{report: second})
	st = waitFor(t, h, g2)
	require.Equal(t, StatusSuccess, st.Status)
	assert.Same(t, second, st.Report)

	// the first request completes last and must not overwrite the state
	analyzer.release("https://first.example.com", outcome{report: &models.AnalysisReport{Score: 1, Summary: "first"}})
	assert.Never(t, func() bool {
		cur := h.State()
		return cur.Generation != g2 || cur.Report != second
	}, 100*time.Millisecond, 5*time.Millisecond)

	assert.Equal(t, []observer.EventType{
		observer.AnalysisSuperseded,
		observer.AnalysisStarted,
		observer.AnalysisCompleted,
	}, rec.types()[1:])
}

func TestHolder_StaleFailureIsDiscarded(t *testing.T) {
	analyzer := newGatedAnalyzer()
	h, _ := newTestHolder(t, analyzer, Options{Policy: OverlapSupersede})

	_, err := h.Submit("https://first.example.com")
	require.NoError(t, err)
	g2, err := h.Submit("https://second.example.com")
	require.NoError(t, err)

	analyzer.release("https://first.example.com", outcome{err: errors.New("late failure")})
	assert.Never(t, func() bool {
		return h.State().Status != StatusLoading
	}, 100*time.Millisecond, 5*time.Millisecond)

	analyzer.release("https://second.example.com", outcome{report: &models.AnalysisReport{Score: 6}})
	assert.Equal(t, StatusSuccess, waitFor(t, h, g2).Status)
}

func TestHolder_StatusRotation(t *testing.T) {
	analyzer := newGatedAnalyzer()
	h, rec := newTestHolder(t, analyzer, Options{StatusInterval: 10 * time.Millisecond})

	g, err := h.Submit("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusMessages[0], h.State().Progress)

	require.Eventually(t, func() bool {
		return h.State().Progress == StatusMessages[2]
	}, time.Second, 5*time.Millisecond)

	analyzer.release("https://example.com", outcome{report: &models.AnalysisReport{Score: 8}})
	waitFor(t, h, g)

	count := len(rec.snapshot())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, len(rec.snapshot()), "rotation stops once loading ends")

	events := rec.snapshot()
	assert.Equal(t, observer.AnalysisCompleted, events[len(events)-1].EventType)
	for _, e := range events {
		if e.EventType == observer.ProgressUpdated {
			assert.Equal(t, StatusLoading, e.State.Status)
		}
	}
}

func TestHolder_WaitHonoursContext(t *testing.T) {
	analyzer := newGatedAnalyzer()
	h, _ := newTestHolder(t, analyzer, Options{})

	g, err := h.Submit("https://example.com")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	st, err := h.Wait(ctx, g)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StatusLoading, st.Status)

	analyzer.release("https://example.com", outcome{report: &models.AnalysisReport{}})
}

func TestHolder_WaitReturnsSettledStateOfItsGeneration(t *testing.T) {
	analyzer := newGatedAnalyzer()
	h, _ := newTestHolder(t, analyzer, Options{Policy: OverlapReject})

	g1, err := h.Submit("https://a.example.com")
	require.NoError(t, err)
	analyzer.release("https://a.example.com", outcome{report: &models.AnalysisReport{Score: 8}})
	require.Equal(t, StatusSuccess, waitFor(t, h, g1).Status)

	g2, err := h.Submit("https://b.example.com")
	require.NoError(t, err)
	require.Equal(t, StatusLoading, h.State().Status)

	st := waitFor(t, h, g1)
	assert.Equal(t, g1, st.Generation)
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, "https://a.example.com", st.URL)
	require.NotNil(t, st.Report)
	assert.Equal(t, 8.0, st.Report.Score)

	analyzer.release("https://b.example.com", outcome{err: errors.New("boom")})
	require.Equal(t, StatusError, waitFor(t, h, g2).Status)

	g3, err := h.Submit("")
	require.Error(t, err)
	assert.Equal(t, StatusError, waitFor(t, h, g3).Status)
	assert.Equal(t, StatusSuccess, waitFor(t, h, g1).Status)
	assert.Equal(t, apperrors.MsgAnalysisUnavailable, waitFor(t, h, g2).Message)
}

func TestHolder_SettledHistoryIsBounded(t *testing.T) {
	h, _ := newTestHolder(t, newGatedAnalyzer(), Options{})

	var last uint64
	for i := 0; i < settledHistory+4; i++ {
		last, _ = h.Submit("")
	}

	h.mu.Lock()
	n := len(h.settled)
	_, kept := h.settled[last]
	h.mu.Unlock()
	assert.Equal(t, settledHistory, n)
	assert.True(t, kept)
}

func TestHolder_Close(t *testing.T) {
	analyzer := newGatedAnalyzer()
	h, _ := newTestHolder(t, analyzer, Options{})

	g, err := h.Submit("https://example.com")
	require.NoError(t, err)
	h.Close()

	st := waitFor(t, h, g)
	assert.Equal(t, StatusLoading, st.Status)

	_, err = h.Submit("https://example.com")
	assert.ErrorIs(t, err, ErrClosed)

	analyzer.release("https://example.com", outcome{report: &models.AnalysisReport{}})
	assert.Never(t, func() bool {
		return h.State().Status != StatusLoading
	}, 50*time.Millisecond, 5*time.Millisecond)
}

func TestMachine_Transitions(t *testing.T) {
	m, err := newMachine(OverlapReject)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, m.current())

	assert.Error(t, m.fire(eventSucceed, StatusSuccess))
	require.NoError(t, m.fire(eventSubmit, StatusLoading))
	assert.Error(t, m.fire(eventReject, StatusError), "reject policy keeps loading")
	require.NoError(t, m.fire(eventSucceed, StatusSuccess))
	require.NoError(t, m.fire(eventReject, StatusError))
	require.NoError(t, m.fire(eventSubmit, StatusLoading))
	require.NoError(t, m.fire(eventFail, StatusError))

	s, err := newMachine(OverlapSupersede)
	require.NoError(t, err)
	require.NoError(t, s.fire(eventSubmit, StatusLoading))
	require.NoError(t, s.fire(eventReject, StatusError))
}
