package holiday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Cache stores one year of holidays per key.
type Cache interface {
	Get(ctx context.Context, key string) ([]string, bool, error)
	Set(ctx context.Context, key string, dates []string, ttl time.Duration) error
}

type HTTPCalendarConfig struct {
	// URLTemplate contains a single %d replaced by the year.
	URLTemplate string
	Timeout     time.Duration
	CacheTTL    time.Duration
}

// HTTPCalendar loads a year of holidays from a remote API returning either a
// list of "YYYY-MM-DD" strings or a list of objects with a "date" field.
// Years are cached; when the API is failing the fallback calendar answers.
type HTTPCalendar struct {
	cfg      HTTPCalendarConfig
	client   *http.Client
	cache    Cache
	fallback *StaticCalendar
	breaker  *gobreaker.CircuitBreaker[[]string]
	lookups  *prometheus.CounterVec
	log      *zap.Logger
}

func NewHTTPCalendar(cfg HTTPCalendarConfig, cache Cache, fallback *StaticCalendar, lookups *prometheus.CounterVec, log *zap.Logger) *HTTPCalendar {
	return &HTTPCalendar{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		cache:    cache,
		fallback: fallback,
		breaker: gobreaker.NewCircuitBreaker[[]string](gobreaker.Settings{
			Name:    "holiday-api",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
		lookups: lookups,
		log:     log,
	}
}

func (c *HTTPCalendar) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	dates, err := c.year(ctx, date.Year())
	if err != nil {
		if c.fallback == nil {
			return false, err
		}
		c.log.Warn("holiday api unavailable, using static calendar", zap.Error(err))
		count(c.lookups, "fallback")
		return c.fallback.contains(date), nil
	}
	day := date.Format(dateLayout)
	for _, d := range dates {
		if d == day {
			return true, nil
		}
	}
	return false, nil
}

func (c *HTTPCalendar) year(ctx context.Context, year int) ([]string, error) {
	key := fmt.Sprintf("holidays:%d", year)
	if c.cache != nil {
		dates, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.log.Warn("holiday cache read failed", zap.Error(err))
		} else if ok {
			count(c.lookups, "cache")
			return dates, nil
		}
	}

	dates, err := c.breaker.Execute(func() ([]string, error) {
		return c.fetch(ctx, year)
	})
	if err != nil {
		return nil, err
	}
	count(c.lookups, "http")

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, dates, c.cfg.CacheTTL); err != nil {
			c.log.Warn("holiday cache write failed", zap.Error(err))
		}
	}
	return dates, nil
}

func (c *HTTPCalendar) fetch(ctx context.Context, year int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(c.cfg.URLTemplate, year), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching holidays for %d: %w", year, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching holidays for %d: unexpected status %d", year, resp.StatusCode)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding holidays for %d: %w", year, err)
	}
	return parseDates(raw)
}

var errBadEntry = errors.New("holiday entry is neither a date string nor an object with a date")

func parseDates(raw []json.RawMessage) ([]string, error) {
	dates := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err != nil {
			var obj struct {
				Date string `json:"date"`
			}
			if err := json.Unmarshal(item, &obj); err != nil || obj.Date == "" {
				return nil, errBadEntry
			}
			s = obj.Date
		}
		if _, err := time.Parse(dateLayout, s); err != nil {
			return nil, fmt.Errorf("%w: %q", errBadEntry, s)
		}
		dates = append(dates, s)
	}
	return dates, nil
}
