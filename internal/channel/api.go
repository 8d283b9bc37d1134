package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"auroraqa/internal/corpus"
	"auroraqa/internal/domain"
	"auroraqa/internal/pipeline"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const apiVersion = "2.0.0"

// Answerer answers one question.
type Answerer interface {
	AnswerQuestion(ctx context.Context, question string) (*domain.AnswerResult, error)
}

// CorpusStats summarises the message corpus.
type CorpusStats interface {
	Stats(ctx context.Context) (corpus.Stats, error)
}

// QAHistory exposes the QA log to the API.
type QAHistory interface {
	QAStats(ctx context.Context) (domain.QAStats, error)
	RecentAnswers(ctx context.Context, limit int) ([]domain.QARecord, error)
}

// HTTPMetrics records request outcomes and serves the scrape endpoint.
type HTTPMetrics interface {
	ObserveHTTP(path string, code int)
	Handler() http.Handler
}

type APIConfig struct {
	Host               string
	Port               int
	RateLimitPerMinute int
	MetricsPath        string

	Answerer Answerer
	Corpus   CorpusStats
	History  QAHistory   // optional
	Metrics  HTTPMetrics // optional
	Ping     func() error
	Logger   *slog.Logger
}

// API serves the question-answering HTTP endpoints.
type API struct {
	echo     *echo.Echo
	addr     string
	answerer Answerer
	corpus   CorpusStats
	history  QAHistory
	metrics  HTTPMetrics
	ping     func() error
	logger   *slog.Logger
	now      func() time.Time
}

func NewAPI(cfg APIConfig) *API {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &API{
		echo:     e,
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		answerer: cfg.Answerer,
		corpus:   cfg.Corpus,
		history:  cfg.History,
		metrics:  cfg.Metrics,
		ping:     cfg.Ping,
		logger:   cfg.Logger.With("component", "api"),
		now:      time.Now,
	}

	e.HTTPErrorHandler = a.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(a.logRequests)
	if cfg.RateLimitPerMinute > 0 {
		e.Use(middleware.RateLimiterWithConfig(rateLimitConfig(cfg.RateLimitPerMinute)))
	}

	e.GET("/", a.handleRoot)
	e.GET("/health", a.handleHealth)
	e.GET("/stats", a.handleStats)
	e.GET("/examples", a.handleExamples)
	e.GET("/logs", a.handleLogs)
	e.POST("/ask", a.handleAskPost)
	e.GET("/ask", a.handleAskGet)
	if a.metrics != nil {
		e.GET(cfg.MetricsPath, echo.WrapHandler(a.metrics.Handler()))
	}
	return a
}

// rateLimitConfig allows perMinute requests per client IP, with bursts up
// to a tenth of that.
func rateLimitConfig(perMinute int) middleware.RateLimiterConfig {
	burst := max(perMinute/10, 1)
	return middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(perMinute) / 60),
			Burst:     burst,
			ExpiresIn: 5 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "cannot identify client")
		},
		DenyHandler: func(c echo.Context, id string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests. Please slow down.")
		},
	}
}

func (a *API) logRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			// resolve the status before logging it
			c.Error(err)
		}
		status := c.Response().Status
		a.logger.Info("http request",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", status,
			"duration", time.Since(start),
			"ip", c.RealIP(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
		if a.metrics != nil {
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			a.metrics.ObserveHTTP(path, status)
		}
		return nil
	}
}

// Handler exposes the router, mainly for tests.
func (a *API) Handler() http.Handler { return a.echo }

func (a *API) Name() string { return "api" }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (a *API) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http api listening", "addr", a.addr)
		if err := a.echo.Start(a.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.Stop(shutdownCtx)
}

func (a *API) Stop(ctx context.Context) error {
	a.logger.Info("shutting down http api")
	return a.echo.Shutdown(ctx)
}

type askRequest struct {
	Question *string `json:"question"`
}

// AskResponse is an answer plus request metadata.
type AskResponse struct {
	*domain.AnswerResult
	Method           string  `json:"method"`
	Timestamp        string  `json:"timestamp"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
}

func (a *API) handleAskPost(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Request validation failed. Expected a JSON body like {\"question\": \"When is Sophia planning her trip to Paris?\"}")
	}
	if req.Question == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Question parameter is required")
	}
	return a.ask(c, *req.Question)
}

func (a *API) handleAskGet(c echo.Context) error {
	q := c.QueryParam("question")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest,
			"Question parameter is required. Example: /ask?question=When is Sophia going to Paris?")
	}
	return a.ask(c, q)
}

func (a *API) ask(c echo.Context, raw string) error {
	start := a.now()

	question, err := pipeline.ValidateQuestion(raw)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	ctx := pipeline.WithChannel(c.Request().Context(), "api")
	result, err := a.answerer.AnswerQuestion(ctx, question)
	if err != nil {
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			return echo.NewHTTPError(http.StatusServiceUnavailable,
				"I'm having trouble accessing the member messages service. Please try again in a moment.").SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, failureMessage(err)).SetInternal(err)
	}

	return c.JSON(http.StatusOK, AskResponse{
		AnswerResult:     result,
		Method:           "rule_based",
		Timestamp:        a.now().Format(time.RFC3339),
		ProcessingTimeMs: float64(a.now().Sub(start).Microseconds()) / 1000,
	})
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyQuestion):
		return "Question cannot be empty"
	case errors.Is(err, domain.ErrQuestionTooLong):
		return "Question too long. Please limit to 500 characters."
	case errors.Is(err, domain.ErrQuestionTooShort):
		return "Question too short. Please provide a more detailed question."
	}
	return err.Error()
}

// failureMessage picks user-facing text from the error's wording.
func failureMessage(err error) string {
	msg := "I encountered an issue while processing your question. "
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "timeout"), strings.Contains(text, "deadline"):
		return msg + "The request timed out. Please try again with a simpler question."
	case strings.Contains(text, "connection"), strings.Contains(text, "fetch"):
		return msg + "I'm having trouble accessing the data source. Please try again in a moment."
	case strings.Contains(text, "http"):
		return msg + "There's an issue with the data service. Please try again later."
	}
	return msg + "Please try rephrasing your question or try again later."
}

type errorResponse struct {
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`
}

func (a *API) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := "The server encountered an unexpected error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		detail = fmt.Sprint(he.Message)
		if he.Internal != nil {
			a.logger.Error("request failed", "status", code, "err", he.Internal)
		}
	} else {
		a.logger.Error("unhandled error", "err", err)
	}
	if errors.Is(err, echo.ErrNotFound) {
		detail = "Endpoint not found. Available endpoints: /, /health, /ask, /stats, /logs, /examples"
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorResponse{Detail: detail, Timestamp: a.now().Format(time.RFC3339)})
}

func (a *API) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"service":     "AuroraQA member messages question answering",
		"version":     apiVersion,
		"status":      "operational",
		"description": "Rule-based answers to natural-language questions about member messages",
		"endpoints": map[string]string{
			"ask":      "/ask - POST {\"question\": ...} or GET ?question=",
			"health":   "/health - system health check",
			"stats":    "/stats - corpus and usage statistics",
			"logs":     "/logs - question log statistics",
			"examples": "/examples - example questions",
		},
		"timestamp": a.now().Format(time.RFC3339),
	})
}

func (a *API) handleHealth(c echo.Context) error {
	ctx := c.Request().Context()
	services := map[string]string{"api": "operational", "qa_engine": "operational"}
	healthy := true

	available := 0
	st, err := a.corpus.Stats(ctx)
	switch {
	case err != nil:
		a.logger.Warn("health: corpus unavailable", "err", err)
		services["data_service"] = "degraded"
		healthy = false
	case st.TotalMessages == 0:
		services["data_service"] = "degraded"
		healthy = false
	default:
		services["data_service"] = "operational"
		available = st.TotalMessages
	}

	if a.ping != nil {
		if err := a.ping(); err != nil {
			a.logger.Warn("health: store ping failed", "err", err)
			services["store"] = "degraded"
			healthy = false
		} else {
			services["store"] = "operational"
		}
	}

	status, conn := "healthy", "connected"
	if !healthy {
		status = "degraded"
	}
	if available == 0 {
		conn = "disconnected"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":    status,
		"timestamp": a.now().Format(time.RFC3339),
		"services":  services,
		"data_connection": map[string]any{
			"status":             conn,
			"messages_available": available,
		},
	})
}

func (a *API) handleStats(c echo.Context) error {
	ctx := c.Request().Context()
	resp := map[string]any{
		"status":    "operational",
		"timestamp": a.now().Format(time.RFC3339),
		"capabilities": map[string]any{
			"question_types": questionTypeTags(),
		},
	}

	st, err := a.corpus.Stats(ctx)
	if err != nil {
		resp["status"] = "partial"
		resp["message"] = "corpus statistics unavailable: " + err.Error()
	} else {
		resp["corpus"] = st
	}

	if a.history != nil {
		if qs, err := a.history.QAStats(ctx); err == nil {
			resp["questions"] = qs
		} else {
			a.logger.Warn("stats: qa log unavailable", "err", err)
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func questionTypeTags() []string {
	tags := make([]string, 0, len(domain.ClassifiedTypes))
	for _, t := range domain.ClassifiedTypes {
		tags = append(tags, t.String())
	}
	return tags
}

func (a *API) handleLogs(c echo.Context) error {
	if a.history == nil {
		return echo.NewHTTPError(http.StatusNotFound, "question log is disabled")
	}
	ctx := c.Request().Context()
	qs, err := a.history.QAStats(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve log statistics").SetInternal(err)
	}
	recent, err := a.history.RecentAnswers(ctx, 10)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to retrieve log statistics").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"request_count": qs.Total,
		"error_count":   qs.Failures,
		"stats":         qs,
		"recent":        recent,
	})
}

// ExampleQuestion is one entry of the /examples catalogue.
type ExampleQuestion struct {
	Question           string `json:"question"`
	Type               string `json:"type"`
	Description        string `json:"description"`
	ExpectedAnswerType string `json:"expected_answer_type"`
}

var exampleQuestions = []ExampleQuestion{
	{"When is Sophia planning her trip to Paris?", "when", "Asks about timing or scheduling", "A time reference like 'this Friday'"},
	{"How many people does Fatima need dinner for?", "how_many", "Asks about numbers or counts", "A number like '4 people'"},
	{"What restaurant did Fatima book?", "what", "Asks about specific places or establishments", "A venue name like 'The French Laundry'"},
	{"Where is Armand going for the opera?", "where", "Asks about places or destinations", "A location like 'Milan'"},
	{"Who booked a private jet?", "who", "Asks about the people behind a request", "A member name with context"},
}

func (a *API) handleExamples(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"version":           apiVersion,
		"example_questions": exampleQuestions,
		"usage_tips": []string{
			"Use full names when possible, e.g. 'Sophia Al-Farsi'",
			"Ask about one thing at a time",
			"Questions starting with When, What, Where, Who or How many work best",
			"Capitalise names and places",
		},
	})
}
