package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fieldreport/internal/observability/logger"
	"github.com/smallbiznis/fieldreport/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	rateLimitReasonActorRate      = "actor-rate"
	rateLimitReasonSubmitInFlight = "submission-in-flight"
)

type submissionRateLimitKey struct {
	Date string `json:"date"`
}

// SubmissionRateLimit throttles submissions per actor and holds the
// (actor, date) lock for the rest of the chain. Redis failures are 503.
func (s *Server) SubmissionRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.submissionLimiter.Enabled() {
			c.Next()
			return
		}

		a, ok := requestActor(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()
		log := logger.FromContext(ctx)

		result, err := s.submissionLimiter.AllowActor(ctx, a.ID.String())
		if err != nil {
			log.Warn("submission rate limit check failed", zap.Error(err))
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			s.denySubmission(c, endpoint, rateLimitReasonActorRate, result.RetryAfter)
			return
		}

		date, err := readSubmissionDate(c)
		if err != nil {
			log.Warn("submission rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}

		if date != "" {
			release, err := s.submissionLimiter.LockSubmission(ctx, a.ID.String(), date)
			if errors.Is(err, ratelimit.ErrSubmissionInFlight) {
				s.denySubmission(c, endpoint, rateLimitReasonSubmitInFlight, time.Second)
				return
			}
			if err != nil {
				log.Warn("submission lock failed", zap.Error(err))
				AbortWithError(c, ErrServiceUnavailable)
				return
			}
			defer func() {
				// The request context may already be canceled here.
				if err := release(context.WithoutCancel(ctx)); err != nil {
					log.Warn("submission unlock failed", zap.Error(err))
				}
			}()
		}

		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		c.Next()
	}
}

func (s *Server) denySubmission(c *gin.Context, endpoint, reason string, retryAfter time.Duration) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("submission rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, reason)

	c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(retryAfter)))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func retryAfterSeconds(d time.Duration) int {
	seconds := int(math.Ceil(d.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// readSubmissionDate peeks at the body for the report date and restores it
// for the handler. A missing or unparsable date skips the lock; the handler
// rejects it.
func readSubmissionDate(c *gin.Context) (string, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBodyBytes))
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload submissionRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}

	date, err := parseDate(payload.Date)
	if err != nil {
		return "", nil
	}
	formatted := date.Format(dateOnlyLayout)
	c.Set(contextReportDateKey, formatted)
	return formatted, nil
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
