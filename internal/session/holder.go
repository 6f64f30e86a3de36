// Package session holds the request lifecycle of one user: idle, then
// loading on every valid submission, ending in success or error.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	apperrors "go-image-grader/internal/errors"
	"go-image-grader/internal/logger"
	"go-image-grader/internal/observer"
	"go-image-grader/internal/service"
	"go-image-grader/pkg/models"

	"github.com/sirupsen/logrus"
)

// OverlapPolicy decides what happens to a submission that arrives while
// another one is loading.
type OverlapPolicy string

const (
	// OverlapReject turns the new submission away.
	OverlapReject OverlapPolicy = "reject"
	// OverlapSupersede cancels the in-flight request and starts the new one.
	OverlapSupersede OverlapPolicy = "supersede"
)

const defaultStatusInterval = 2 * time.Second

// settledHistory is how many finished generations Wait can still report on.
const settledHistory = 16

// StatusMessages are cycled through while a request is loading.
var StatusMessages = []string{
	"Scanning page for images...",
	"Analyzing image compression...",
	"Checking for modern formats...",
	"Evaluating SEO and accessibility...",
	"Compiling your report...",
}

var (
	// ErrRequestInFlight is wrapped by the conflict error returned when a
	// submission is rejected under OverlapReject.
	ErrRequestInFlight = errors.New("analysis already in progress")

	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("session closed")
)

// State is a snapshot of a session. Report must be treated as read-only.
type State struct {
	Status     string
	Generation uint64
	URL        string
	Report     *models.AnalysisReport
	Message    string
	Progress   string
	UpdatedAt  time.Time
}

// Terminal reports whether the request of this generation has finished.
func (s State) Terminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusError
}

// Response converts the snapshot into its wire form.
func (s State) Response(sessionID string) models.StateResponse {
	return models.StateResponse{
		SessionID:  sessionID,
		Status:     s.Status,
		Generation: s.Generation,
		URL:        s.URL,
		Progress:   s.Progress,
		Message:    s.Message,
		Report:     s.Report,
		UpdatedAt:  s.UpdatedAt,
	}
}

// URLValidator rejects page URLs before any request is made.
type URLValidator interface {
	ValidatePageURL(pageURL string) error
}

// Options configures a Holder.
type Options struct {
	Policy         OverlapPolicy
	StatusInterval time.Duration
	Messages       []string
	Publisher      observer.Subject

	// Validator, if set, runs after the built-in emptiness check.
	Validator URLValidator
}

// Holder owns the state of one session. All methods are safe for concurrent
// use. Observers are notified synchronously in the order changes happen and
// must not call Submit from OnEvent.
type Holder struct {
	id        string
	analyzer  service.AnalysisService
	policy    OverlapPolicy
	interval  time.Duration
	messages  []string
	publisher observer.Subject
	validator URLValidator

	ctx    context.Context
	cancel context.CancelFunc

	// pubMu is taken before mu is released so events leave in commit order.
	mu    sync.Mutex
	pubMu sync.Mutex

	fsm          *machine
	state        State
	closed       bool
	inflight     context.CancelFunc
	startedAt    time.Time
	stopRotation chan struct{}
	done         map[uint64]chan struct{}
	settled      map[uint64]State
}

// NewHolder creates a holder in the idle state.
func NewHolder(id string, analyzer service.AnalysisService, opts Options) (*Holder, error) {
	if opts.Policy == "" {
		opts.Policy = OverlapReject
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = defaultStatusInterval
	}
	if len(opts.Messages) == 0 {
		opts.Messages = StatusMessages
	}
	if opts.Publisher == nil {
		opts.Publisher = observer.NewEventPublisher()
	}

	fsm, err := newMachine(opts.Policy)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Holder{
		id:        id,
		analyzer:  analyzer,
		policy:    opts.Policy,
		interval:  opts.StatusInterval,
		messages:  opts.Messages,
		publisher: opts.Publisher,
		validator: opts.Validator,
		ctx:       ctx,
		cancel:    cancel,
		fsm:       fsm,
		state:     State{Status: StatusIdle, UpdatedAt: time.Now()},
		done:      make(map[uint64]chan struct{}),
		settled:   make(map[uint64]State),
	}, nil
}

// ID returns the session id.
func (h *Holder) ID() string {
	return h.id
}

// State returns the current snapshot.
func (h *Holder) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Submit starts an analysis of pageURL and returns its generation.
//
// An empty URL, or one the configured validator rejects, moves the session
// straight to error without calling the analyzer and returns a validation
// error. Otherwise the previous result is
// cleared and the session is loading when Submit returns. While loading,
// the overlap policy decides between a conflict error and superseding the
// in-flight request.
func (h *Holder) Submit(pageURL string) (uint64, error) {
	pageURL = strings.TrimSpace(pageURL)
	invalid := pageURL == ""
	var cause error
	if !invalid && h.validator != nil {
		cause = h.validator.ValidatePageURL(pageURL)
		invalid = cause != nil
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return 0, ErrClosed
	}

	if h.state.Status == StatusLoading && h.policy != OverlapSupersede {
		current := h.state
		h.commit(h.event(observer.SubmitRejected, current, 0))
		return current.Generation, apperrors.NewConflictError(apperrors.MsgRequestInFlight, ErrRequestInFlight)
	}

	var events []observer.StateEvent
	var released chan struct{}
	if h.state.Status == StatusLoading {
		events = append(events, h.event(observer.AnalysisSuperseded, h.state, time.Since(h.startedAt)))
		released = h.endLoadingLocked(h.state.Generation)
	}

	now := time.Now()
	gen := h.state.Generation + 1

	if invalid {
		if err := h.fsm.fire(eventReject, StatusError); err != nil {
			h.mu.Unlock()
			closeIfSet(released)
			return 0, apperrors.NewInternalError("invalid session transition", err)
		}
		h.state = State{
			Status:     StatusError,
			Generation: gen,
			URL:        pageURL,
			Message:    apperrors.MsgInvalidURL,
			UpdatedAt:  now,
		}
		h.settleLocked(h.state)
		events = append(events, h.event(observer.InputRejected, h.state, 0))
		h.commit(events...)
		closeIfSet(released)
		if cause != nil {
			return gen, cause
		}
		return gen, apperrors.NewValidationError(apperrors.MsgInvalidURL, nil)
	}

	if err := h.fsm.fire(eventSubmit, StatusLoading); err != nil {
		h.mu.Unlock()
		closeIfSet(released)
		return 0, apperrors.NewInternalError("invalid session transition", err)
	}

	ctx, cancel := context.WithCancel(h.ctx)
	h.inflight = cancel
	h.startedAt = now
	h.done[gen] = make(chan struct{})
	h.state = State{
		Status:     StatusLoading,
		Generation: gen,
		URL:        pageURL,
		Progress:   h.messages[0],
		UpdatedAt:  now,
	}
	h.startRotationLocked(gen)

	events = append(events, h.event(observer.AnalysisStarted, h.state, 0))
	h.commit(events...)
	closeIfSet(released)

	go h.run(ctx, gen, pageURL)
	return gen, nil
}

// Wait blocks until generation gen has finished or was superseded. It
// returns the terminal state of gen even if a newer submission has started
// since. A superseded generation yields the current state, which belongs to
// the newer one.
func (h *Holder) Wait(ctx context.Context, gen uint64) (State, error) {
	h.mu.Lock()
	done, ok := h.done[gen]
	h.mu.Unlock()

	if ok {
		select {
		case <-done:
		case <-ctx.Done():
			return h.State(), ctx.Err()
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if st, ok := h.settled[gen]; ok {
		return st, nil
	}
	return h.state, nil
}

// Close cancels any in-flight request. Its result is discarded.
func (h *Holder) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true

	var released chan struct{}
	if h.state.Status == StatusLoading {
		released = h.endLoadingLocked(h.state.Generation)
	}
	h.mu.Unlock()

	h.cancel()
	closeIfSet(released)
}

func (h *Holder) run(ctx context.Context, gen uint64, pageURL string) {
	report, err := h.analyzer.Analyze(ctx, pageURL)

	h.mu.Lock()
	if h.closed || h.state.Generation != gen || h.state.Status != StatusLoading {
		h.mu.Unlock()
		logger.WithFields(logrus.Fields{
			"session_id": h.id,
			"generation": gen,
		}).Debug("Discarding result of a stale generation")
		return
	}

	duration := time.Since(h.startedAt)
	released := h.endLoadingLocked(gen)
	now := time.Now()

	var evt observer.StateEvent
	if err != nil {
		logger.WithFields(logrus.Fields{
			"session_id": h.id,
			"generation": gen,
			"url":        pageURL,
		}).WithError(err).Error("Analysis failed")

		if ferr := h.fsm.fire(eventFail, StatusError); ferr != nil {
			logger.WithError(ferr).Error("Session state machine out of sync")
		}
		h.state = State{
			Status:     StatusError,
			Generation: gen,
			URL:        pageURL,
			Message:    apperrors.MsgAnalysisUnavailable,
			UpdatedAt:  now,
		}
		evt = h.event(observer.AnalysisFailed, h.state, duration)
	} else {
		if ferr := h.fsm.fire(eventSucceed, StatusSuccess); ferr != nil {
			logger.WithError(ferr).Error("Session state machine out of sync")
		}
		h.state = State{
			Status:     StatusSuccess,
			Generation: gen,
			URL:        pageURL,
			Report:     report,
			UpdatedAt:  now,
		}
		evt = h.event(observer.AnalysisCompleted, h.state, duration)
	}
	h.settleLocked(h.state)

	h.commit(evt)
	closeIfSet(released)
}

// endLoadingLocked stops the work of generation gen and returns its done
// channel, to be closed once the following events are published.
func (h *Holder) endLoadingLocked(gen uint64) chan struct{} {
	if h.inflight != nil {
		h.inflight()
		h.inflight = nil
	}
	if h.stopRotation != nil {
		close(h.stopRotation)
		h.stopRotation = nil
	}
	done := h.done[gen]
	delete(h.done, gen)
	return done
}

// settleLocked records the terminal state of a generation for Wait.
func (h *Holder) settleLocked(st State) {
	h.settled[st.Generation] = st
	for gen := range h.settled {
		if gen+settledHistory <= st.Generation {
			delete(h.settled, gen)
		}
	}
}

func (h *Holder) startRotationLocked(gen uint64) {
	stop := make(chan struct{})
	h.stopRotation = stop

	go func() {
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()

		next := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
			}

			next = (next + 1) % len(h.messages)

			h.mu.Lock()
			if h.state.Generation != gen || h.state.Status != StatusLoading {
				h.mu.Unlock()
				return
			}
			h.state.Progress = h.messages[next]
			h.commit(h.event(observer.ProgressUpdated, h.state, 0))
		}
	}()
}

func (h *Holder) event(t observer.EventType, st State, d time.Duration) observer.StateEvent {
	return observer.StateEvent{
		EventType: t,
		SessionID: h.id,
		State:     st.Response(h.id),
		Duration:  d,
		Timestamp: time.Now(),
	}
}

// commit must be called with h.mu held. It releases h.mu and publishes
// events, keeping the order in which state changes were made.
func (h *Holder) commit(events ...observer.StateEvent) {
	h.pubMu.Lock()
	h.mu.Unlock()
	defer h.pubMu.Unlock()

	for _, e := range events {
		h.publisher.NotifyObservers(h.ctx, e)
	}
}

func closeIfSet(ch chan struct{}) {
	if ch != nil {
		close(ch)
	}
}
