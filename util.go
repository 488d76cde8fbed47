package main

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/totegamma/mediastore/internal/apperr"
	"github.com/totegamma/mediastore/internal/logger"
)

// rateLimiter counts requests per client in fixed windows.
type rateLimiter struct {
	hits   *cache.Cache
	limit  int
	window time.Duration
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		hits:   cache.New(window, 2*window),
		limit:  limit,
		window: window,
	}
}

func (l *rateLimiter) allow(key string) bool {
	if l.limit <= 0 {
		return true
	}
	if err := l.hits.Add(key, 1, l.window); err == nil {
		return true
	}
	n, err := l.hits.IncrementInt(key, 1)
	if err != nil {
		// the window expired between Add and IncrementInt
		l.hits.Set(key, 1, l.window)
		return true
	}
	return n <= l.limit
}

func (l *rateLimiter) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !l.allow(c.RealIP()) {
			return c.JSON(http.StatusTooManyRequests, echo.Map{"status": "error", "error": "too many requests"})
		}
		return next(c)
	}
}

func statusOf(err error) int {
	switch apperr.Kind(err) {
	case apperr.ErrNotFound:
		return http.StatusNotFound
	case apperr.ErrInvalidInput:
		return http.StatusBadRequest
	case apperr.ErrInsufficientSpace:
		return http.StatusForbidden
	case apperr.ErrIO:
		return http.StatusBadGateway
	case apperr.ErrConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func respondError(c echo.Context, err error) error {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithField("path", c.Path()).Error("request failed")
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"status": "error", "code": apperr.Code(err), "error": msg})
}
