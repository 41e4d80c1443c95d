// Package edge is the shared request pipeline every function runs behind:
// method check, rate limit, body decode, field validation, execution with a
// deadline, and exactly one response envelope.
package edge

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"maritime-edge/internal/common/errors"
	"maritime-edge/internal/common/logger"
	"maritime-edge/internal/common/metrics"
	"maritime-edge/internal/common/observability"
	"maritime-edge/internal/common/ratelimit"
	"maritime-edge/internal/common/response"
	"maritime-edge/internal/common/validation"
)

// DefaultTimeout bounds a single function execution.
const DefaultTimeout = 90 * time.Second

// Function is one edge endpoint. Execute receives the raw JSON body after the
// required top-level fields have been checked.
type Function interface {
	Name() string
	RequiredFields() []string
	Execute(ctx context.Context, raw []byte) (interface{}, error)
}

type Runtime struct {
	logger       logger.Logger
	obs          *observability.Observability
	errHandler   *errors.ErrorHandler
	version      string
	maxBodyBytes int64
	proxies      TrustedProxies
}

type RuntimeOption func(*Runtime)

// WithTrustedProxies lets the listed peers supply the client address.
func WithTrustedProxies(tp TrustedProxies) RuntimeOption {
	return func(rt *Runtime) { rt.proxies = tp }
}

func NewRuntime(log logger.Logger, obs *observability.Observability, version string, maxBodyBytes int64, opts ...RuntimeOption) *Runtime {
	if obs == nil {
		obs = observability.NewNoop("maritime-edge")
	}
	rt := &Runtime{
		logger:       log,
		obs:          obs,
		errHandler:   errors.NewErrorHandler(log),
		version:      version,
		maxBodyBytes: maxBodyBytes,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Mount pairs a function with its limiter and deadline.
type Mount struct {
	Function Function
	Limiter  ratelimit.Limiter
	Timeout  time.Duration
}

// Handler wraps a mounted function in the request pipeline.
func (rt *Runtime) Handler(m Mount) http.Handler {
	name := m.Function.Name()
	limiter := m.Limiter
	if limiter == nil {
		limiter = ratelimit.NoopLimiter{}
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := GetRequestID(r.Context())
		if requestID == "" {
			requestID = r.Header.Get("X-Request-ID")
		}

		ctx, span := rt.obs.StartSpan(r.Context(), name, requestID)
		defer span.End()

		metrics.FunctionsInFlight.WithLabelValues(name).Inc()
		defer metrics.FunctionsInFlight.WithLabelValues(name).Dec()

		log := rt.logger.With(map[string]interface{}{
			"function":  name,
			"requestId": requestID,
		})
		if sc := span.SpanContext(); sc.IsValid() {
			log = log.With(map[string]interface{}{"traceId": sc.TraceID().String()})
		}
		log.Debug("function invoked", map[string]interface{}{"method": r.Method})

		data, err := rt.run(ctx, w, r, m.Function, limiter, timeout, log)

		var efe *errors.EdgeFunctionError
		if err != nil {
			efe = rt.errHandler.Handle(err, map[string]interface{}{
				"function":  name,
				"requestId": requestID,
			})
			metrics.FunctionFailures.WithLabelValues(name, string(efe.Code)).Inc()
		}

		setCORSHeaders(w.Header())
		status, resp := response.CreateResponse(data, efe, requestID, rt.version)
		if werr := response.Write(w, status, resp); werr != nil {
			log.Warn("failed to write response", map[string]interface{}{"error": werr.Error()})
		}

		duration := time.Since(start)
		statusStr := strconv.Itoa(status)
		metrics.FunctionRequests.WithLabelValues(name, statusStr).Inc()
		metrics.FunctionDuration.WithLabelValues(name).Observe(duration.Seconds())
		rt.obs.RecordInvocation(ctx, name, statusStr, duration)

		log.Info("function completed", map[string]interface{}{
			"status":     status,
			"durationMs": duration.Milliseconds(),
		})
	})
}

// run executes the pipeline and converts panics into errors so the caller
// always writes exactly one envelope.
func (rt *Runtime) run(ctx context.Context, w http.ResponseWriter, r *http.Request, fn Function,
	limiter ratelimit.Limiter, timeout time.Duration, log logger.Logger) (data interface{}, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("function panicked", map[string]interface{}{"panic": fmt.Sprint(rec)})
			data = nil
			err = errors.NewInternalError(fmt.Errorf("panic: %v", rec))
		}
	}()

	if r.Method != http.MethodPost {
		return nil, errors.NewMethodNotAllowedError(r.Method)
	}

	if err := rt.checkRateLimit(ctx, w, r, fn.Name(), limiter, log); err != nil {
		return nil, err
	}

	body, raw, err := validation.DecodeBody(r.Body, rt.maxBodyBytes)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateRequestBody(body, fn.RequiredFields()); err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err = fn.Execute(execCtx, raw)
	if err != nil && stderrors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return nil, errors.NewTimeoutError(err)
	}
	return data, err
}

func (rt *Runtime) checkRateLimit(ctx context.Context, w http.ResponseWriter, r *http.Request, name string,
	limiter ratelimit.Limiter, log logger.Logger) error {
	res, err := limiter.Check(ctx, name+":"+rt.proxies.CallerIdentifier(r))
	if err != nil {
		// Fail open on backend errors.
		log.Warn("rate limiter unavailable", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if res.Limit <= 0 {
		return nil
	}

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

	if !res.Allowed {
		metrics.RateLimitRejections.WithLabelValues(name).Inc()
		h.Set("Retry-After", strconv.Itoa(retryAfter(res.ResetAt)))
		return errors.NewRateLimitError(res.Limit, res.ResetAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func retryAfter(resetAt time.Time) int {
	secs := int(time.Until(resetAt).Seconds() + 0.999)
	if secs < 1 {
		return 1
	}
	return secs
}
