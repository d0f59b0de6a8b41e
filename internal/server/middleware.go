package server

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fieldreport/internal/actor"
	"github.com/smallbiznis/fieldreport/internal/observability/logger"
	reportdomain "github.com/smallbiznis/fieldreport/internal/report/domain"
	"go.uber.org/zap"
)

// HeaderActorID carries the caller's user id, set by the upstream gateway
// after it has authenticated the request.
const HeaderActorID = "X-Actor-ID"

const maxRequestBodyBytes = 1 << 20

// ActorRequired resolves X-Actor-ID to a stored user and attaches the
// actor to the request context for handlers and request logs.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderActorID))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		id, err := parseSnowflakeID(raw)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := c.Request.Context()
		user, err := s.users.FindByID(ctx, s.db, id)
		if err != nil {
			logger.FromContext(ctx).Error("resolve actor failed", zap.Error(err))
			AbortWithError(c, reportdomain.NewPersistenceError("find_actor", err))
			return
		}
		if user == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Request = c.Request.WithContext(actor.WithActor(ctx, user.Actor()))
		c.Next()
	}
}

func requestActor(c *gin.Context) (actor.Actor, bool) {
	return actor.FromContext(c.Request.Context())
}

// decodeJSON rejects unknown fields and trailing data.
func decodeJSON(c *gin.Context, dst any) error {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBodyBytes))
	if err != nil {
		return invalidRequestError()
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidRequestError()
	}
	if dec.More() {
		return invalidRequestError()
	}
	return nil
}
