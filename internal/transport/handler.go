package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go-image-grader/internal/config"
	apperrors "go-image-grader/internal/errors"
	"go-image-grader/internal/factory"
	"go-image-grader/internal/logger"
	"go-image-grader/internal/observer"
	"go-image-grader/internal/render"
	"go-image-grader/internal/repository"
	"go-image-grader/internal/session"
	"go-image-grader/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	// SessionCookie carries the session id of a browser.
	SessionCookie = "grader_session"
	// SessionHeader carries the session id of API clients without a cookie jar.
	SessionHeader = "X-Session-ID"

	sessionKey = "session"

	msgSuperseded   = "This analysis was replaced by a newer submission."
	msgStillRunning = "The analysis is still running. Check /api/state for the result."
	msgNoReport     = "No report is available yet. Submit a URL first."
)

// Deps are the collaborators the HTTP handler needs.
type Deps struct {
	Sessions    repository.SessionRepository
	Renderers   factory.RendererFactory
	Broadcaster *observer.Broadcaster
	Metrics     *observer.MetricsObserver
}

type pageRenderer interface {
	RenderPage(w io.Writer, st models.StateResponse) error
}

func NewHandler(deps Deps, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/metrics", metrics(deps.Metrics, deps.Sessions))

	sessions := sessionMiddleware(deps.Sessions, cfg.SessionTTL)

	page := newPageRenderer(deps.Renderers)
	r.GET("/", sessions, showPage(page))
	r.POST("/", sessions, submitForm())

	api := r.Group("/api", sessions)
	api.POST("/analyze", analyze(cfg))
	api.GET("/state", currentState)
	api.GET("/report", report(deps.Renderers))
	api.GET("/events", streamEvents(deps.Broadcaster))
	api.GET("/ws", streamWebSocket(deps.Broadcaster))

	return r
}

func newPageRenderer(f factory.RendererFactory) pageRenderer {
	if r, err := f.CreateRenderer(factory.FormatHTML); err == nil {
		if p, ok := r.(pageRenderer); ok {
			return p
		}
	}
	return render.NewHTMLRenderer(1)
}

func showPage(page pageRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		holder := sessionFrom(c)

		var buf bytes.Buffer
		if err := page.RenderPage(&buf, holder.State().Response(holder.ID())); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to render page", err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	}
}

// submitForm always redirects back to the page, which shows the outcome.
func submitForm() gin.HandlerFunc {
	return func(c *gin.Context) {
		holder := sessionFrom(c)
		pageURL := c.PostForm("url")

		if _, err := holder.Submit(pageURL); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"session_id": holder.ID(),
				"url":        pageURL,
			}).Debug("Form submission not started")
		}
		c.Redirect(http.StatusSeeOther, "/")
	}
}

func analyze(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		holder := sessionFrom(c)

		// Log request start
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
			"session_id": holder.ID(),
		}).Info("Processing analysis request")

		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		gen, err := holder.Submit(req.URL)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), apperrors.UserMessage(err, apperrors.MsgInvalidURL), err)
			return
		}

		if c.Query("async") == "true" {
			c.JSON(http.StatusAccepted, holder.State().Response(holder.ID()))
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		st, err := holder.Wait(ctx, gen)
		if err != nil {
			terr := apperrors.NewTimeoutError(msgStillRunning, err)
			respondError(c, terr.StatusCode, terr.Message, terr)
			return
		}

		switch {
		case st.Generation != gen:
			respondError(c, http.StatusConflict, msgSuperseded, session.ErrRequestInFlight)
		case st.Status == session.StatusError:
			respondError(c, http.StatusBadGateway, st.Message, errors.New("analysis failed"))
		default:
			logger.WithFields(logrus.Fields{
				"url":                req.URL,
				"session_id":         holder.ID(),
				"score":              st.Report.Score,
				"processing_time_ms": time.Since(startTime).Milliseconds(),
			}).Info("Analysis request completed successfully")
			c.JSON(http.StatusOK, st.Response(holder.ID()))
		}
	}
}

func currentState(c *gin.Context) {
	holder := sessionFrom(c)
	c.JSON(http.StatusOK, holder.State().Response(holder.ID()))
}

func report(renderers factory.RendererFactory) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := factory.ParseFormat(c.Query("format"))
		if err != nil {
			respondError(c, http.StatusBadRequest, "unsupported format", err)
			return
		}

		st := sessionFrom(c).State()
		if st.Status != session.StatusSuccess || st.Report == nil {
			nerr := apperrors.NewNotFoundError(msgNoReport, nil)
			respondError(c, nerr.StatusCode, nerr.Message, nerr)
			return
		}

		r, err := renderers.CreateRenderer(format)
		if err != nil {
			respondError(c, http.StatusBadRequest, "unsupported format", err)
			return
		}

		var buf bytes.Buffer
		if err := r.Render(&buf, st.URL, st.Report); err != nil {
			respondError(c, http.StatusInternalServerError, "failed to render report", err)
			return
		}
		c.Data(http.StatusOK, r.ContentType(), buf.Bytes())
	}
}

func metrics(m *observer.MetricsObserver, sessions repository.SessionRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := m.GetMetrics()
		snapshot["active_sessions"] = sessions.Len()
		c.JSON(http.StatusOK, snapshot)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err)
		}
	}
}

// sessionMiddleware attaches the caller's session, issuing a new one when
// the cookie or header is missing or unknown.
func sessionMiddleware(repo repository.SessionRepository, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || id == "" {
			id = c.GetHeader(SessionHeader)
		}

		holder, created, err := repo.GetOrCreate(id)
		if err != nil {
			respondError(c, determineStatusCode(err), "session unavailable", err)
			return
		}
		if created {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, holder.ID(), int(ttl.Seconds()), "/", "", false, true)
		}
		c.Header(SessionHeader, holder.ID())
		c.Set(sessionKey, holder)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *session.Holder {
	return c.MustGet(sessionKey).(*session.Holder)
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, repository.ErrRepositoryClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and answers with message, which is shown to users
// and must not carry error details.
func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
	})
}
