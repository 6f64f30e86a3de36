package container

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go-image-grader/internal/ai"
	"go-image-grader/internal/config"
	"go-image-grader/internal/factory"
	"go-image-grader/internal/logger"
	"go-image-grader/internal/observer"
	"go-image-grader/internal/repository"
	"go-image-grader/internal/service"
	"go-image-grader/internal/session"
	"go-image-grader/internal/strategy"
	"go-image-grader/internal/transport"
	"go-image-grader/pkg/validation"

	"github.com/sirupsen/logrus"
)

const (
	broadcastBuffer   = 16
	minPruneEvery     = time.Minute
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	components      *factory.ComponentFactory
	generator       ai.Generator
	analysisService service.AnalysisService
	publisher       *observer.EventPublisher
	metrics         *observer.MetricsObserver
	broadcaster     *observer.Broadcaster
	sessions        *repository.MemorySessionRepository
	handler         http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	// Build dependency graph
	generator, err := components.GeneratorFactory.CreateGenerator(factory.ProviderType(cfg.AIProvider))
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	validationStrategy, err := strategy.NewValidationStrategy(cfg.ValidationMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation strategy: %w", err)
	}
	analysisService := service.NewAnalysisService(generator, validationStrategy)

	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	broadcaster := observer.NewBroadcaster(broadcastBuffer)
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)
	publisher.Subscribe(broadcaster)

	urlValidator := newURLValidator(cfg)

	opts := session.Options{
		Policy:         session.OverlapPolicy(cfg.OverlapPolicy),
		StatusInterval: cfg.StatusInterval,
		Publisher:      publisher,
		Validator:      urlValidator,
	}
	sessions := repository.NewMemorySessionRepository(func(id string) (*session.Holder, error) {
		return session.NewHolder(id, analysisService, opts)
	})

	handler := transport.NewHandler(transport.Deps{
		Sessions:    sessions,
		Renderers:   components.RendererFactory,
		Broadcaster: broadcaster,
		Metrics:     metrics,
	}, cfg)

	logger.WithFields(logrus.Fields{
		"generator":  generator.ID(),
		"validation": validationStrategy.GetStrategyName(),
		"overlap":    opts.Policy,
	}).Debug("Container initialized")

	return &Container{
		config:          cfg,
		components:      components,
		generator:       generator,
		analysisService: analysisService,
		publisher:       publisher,
		metrics:         metrics,
		broadcaster:     broadcaster,
		sessions:        sessions,
		handler:         handler,
	}, nil
}

func newURLValidator(cfg *config.Config) *validation.URLValidator {
	switch {
	case len(cfg.AllowedHosts) > 0:
		return validation.NewURLValidatorWithOptions([]string{"http", "https"}, cfg.AllowedHosts)
	case cfg.StrictURLValidation:
		return validation.NewStrictURLValidator()
	default:
		return validation.NewURLValidator()
	}
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Sessions returns the session repository
func (c *Container) Sessions() repository.SessionRepository {
	return c.sessions
}

// Publisher returns the subject every session reports its state changes to
func (c *Container) Publisher() observer.Subject {
	return c.publisher
}

// Metrics returns the metrics observer
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Renderers returns the renderer factory
func (c *Container) Renderers() factory.RendererFactory {
	return c.components.RendererFactory
}

// RunJanitor prunes idle sessions until ctx is done.
func (c *Container) RunJanitor(ctx context.Context) {
	ttl := c.config.SessionTTL
	if ttl <= 0 {
		return
	}
	every := ttl / 2
	if every < minPruneEvery {
		every = minPruneEvery
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.sessions.Prune(ttl); n > 0 {
				logger.WithFields(logrus.Fields{
					"pruned": n,
					"active": c.sessions.Len(),
				}).Info("Pruned idle sessions")
			}
		}
	}
}

// Serve listens on the configured address and serves the handler until ctx
// is done, then shuts down gracefully. The session janitor runs alongside.
func (c *Container) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", c.config.ServerAddress())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", c.config.ServerAddress(), err)
	}
	return c.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener, which it takes ownership of.
func (c *Container) ServeListener(ctx context.Context, ln net.Listener) error {
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go c.RunJanitor(janitorCtx)

	// WriteTimeout stays unset: /api/events and /api/ws are long-lived.
	server := &http.Server{
		Handler:           c.handler,
		ReadTimeout:       c.config.RequestTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"address":  ln.Addr().String(),
			"provider": c.config.AIProvider,
		}).Info("Starting HTTP server")
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}

// Close ends every session; in-flight results are discarded.
func (c *Container) Close() {
	c.sessions.Close()
}
