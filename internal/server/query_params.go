package server

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	reportdomain "github.com/smallbiznis/fieldreport/internal/report/domain"
)

const dateOnlyLayout = "2006-01-02"

// parseDate reads a calendar date as UTC midnight.
func parseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, reportdomain.ErrInvalidDate
	}
	parsed, err := time.ParseInLocation(dateOnlyLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, reportdomain.ErrInvalidDate
	}
	return parsed, nil
}

// parseOptionalDate returns the zero time for an empty value, which the
// services treat as an open bound.
func parseOptionalDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return parseDate(value)
}

func parseSnowflakeID(value string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, reportdomain.ErrInvalidID
	}
	parsed, err := snowflake.ParseString(trimmed)
	if err != nil || parsed <= 0 {
		return 0, reportdomain.ErrInvalidID
	}
	return parsed, nil
}
