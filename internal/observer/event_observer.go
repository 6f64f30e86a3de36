package observer

import (
	"context"
	"sync"
	"time"

	"go-image-grader/pkg/models"

	"github.com/sirupsen/logrus"
)

// StateEvent is published every time a session's state changes, and when a
// submission is turned away without changing it.
type StateEvent struct {
	EventType EventType            `json:"event_type"`
	SessionID string               `json:"session_id"`
	State     models.StateResponse `json:"state"`
	Duration  time.Duration        `json:"duration,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// EventType represents the type of state event
type EventType string

const (
	// AnalysisStarted when a valid submission enters loading
	AnalysisStarted EventType = "analysis_started"
	// AnalysisCompleted when the report arrived and passed validation
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when the AI service call or validation failed
	AnalysisFailed EventType = "analysis_failed"
	// AnalysisSuperseded when a newer submission replaced an in-flight one
	AnalysisSuperseded EventType = "analysis_superseded"
	// InputRejected when an empty URL was submitted
	InputRejected EventType = "input_rejected"
	// SubmitRejected when a submission arrived while another was in flight
	SubmitRejected EventType = "submit_rejected"
	// ProgressUpdated when the loading status message rotates
	ProgressUpdated EventType = "progress_updated"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event StateEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event StateEvent)
}

// LoggingObserver logs state events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles state events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event StateEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"session_id": event.SessionID,
		"status":     event.State.Status,
		"generation": event.State.Generation,
	}

	if event.State.URL != "" {
		fields["url"] = event.State.URL
	}
	if event.Duration > 0 {
		fields["duration"] = event.Duration.String()
	}
	if event.State.Report != nil {
		fields["score"] = event.State.Report.Score
	}

	switch event.EventType {
	case AnalysisStarted:
		o.logger.WithFields(fields).Info("Analysis started")
	case AnalysisCompleted:
		o.logger.WithFields(fields).Info("Analysis completed")
	case AnalysisFailed:
		o.logger.WithFields(fields).Warn("Analysis failed")
	case AnalysisSuperseded:
		o.logger.WithFields(fields).Info("Analysis superseded by a newer submission")
	case InputRejected:
		o.logger.WithFields(fields).Info("Empty URL rejected")
	case SubmitRejected:
		o.logger.WithFields(fields).Warn("Submission rejected while analysis in flight")
	case ProgressUpdated:
		fields["progress"] = event.State.Progress
		o.logger.WithFields(fields).Debug("Progress updated")
	default:
		o.logger.WithFields(fields).Info("State event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from state events
type MetricsObserver struct {
	mu                 sync.RWMutex
	totalSubmissions   int64
	successfulAnalyses int64
	failedAnalyses     int64
	invalidInputs      int64
	busyRejections     int64
	supersededAnalyses int64
	totalDuration      time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles state events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event StateEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalysisStarted:
		o.totalSubmissions++
	case InputRejected:
		o.totalSubmissions++
		o.invalidInputs++
	case AnalysisCompleted:
		o.successfulAnalyses++
		o.totalDuration += event.Duration
	case AnalysisFailed:
		o.failedAnalyses++
	case SubmitRejected:
		o.busyRejections++
	case AnalysisSuperseded:
		o.supersededAnalyses++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgDuration := time.Duration(0)
	if o.successfulAnalyses > 0 {
		avgDuration = o.totalDuration / time.Duration(o.successfulAnalyses)
	}

	return map[string]interface{}{
		"total_submissions":   o.totalSubmissions,
		"successful_analyses": o.successfulAnalyses,
		"failed_analyses":     o.failedAnalyses,
		"invalid_inputs":      o.invalidInputs,
		"busy_rejections":     o.busyRejections,
		"superseded_analyses": o.supersededAnalyses,
		"avg_duration_ms":     avgDuration.Milliseconds(),
	}
}

// EventPublisher implements the Subject interface. Observers are called
// one after another on the publishing goroutine, so they see events in
// publish order.
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event StateEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	for _, observer := range observers {
		notify(ctx, observer, event)
	}
}

func notify(ctx context.Context, obs Observer, event StateEvent) {
	defer func() {
		if r := recover(); r != nil {
			// Log panic but don't crash the application
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc struct {
	Name string
	Fn   func(ctx context.Context, event StateEvent)
}

func (f ObserverFunc) OnEvent(ctx context.Context, event StateEvent) {
	f.Fn(ctx, event)
}

func (f ObserverFunc) GetObserverName() string {
	return f.Name
}
