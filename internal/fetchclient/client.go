package fetchclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"weathertelemetry/internal/models"
)

const upstreamURL = "https://api.open-meteo.com/v1/forecast?latitude=%f&longitude=%f&current_weather=true&timeformat=unixtime"

// ErrThrottled marks a failure caused by the upstream's 429 response, and
// ErrTimeout one caused by the request exceeding its deadline. The returned
// errors wrap these sentinels via %w so callers can classify with errors.Is
// even after the retry loop's final wrapping.
var (
	ErrThrottled = errors.New("fetchclient: upstream throttled")
	ErrTimeout   = errors.New("fetchclient: request timed out")
)

const (
	requestTimeout  = 10 * time.Second
	maxRetries      = 4 // retries after the first attempt: 5 attempts in all
	maxBackoffDelay = 32 * time.Second
)

// Client is the real open-meteo-backed Fetcher (spec.md §4.4). It forces
// IPv4 dialing the way the teacher's ingester avoids flaky dual-stack
// lookups against public RPC endpoints, and sizes its idle connection pool
// to the worker count so every worker goroutine keeps a warm connection.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient builds a Client whose transport is tuned for workerCount
// concurrent callers. A soft per-process rate.Limiter (2 x workerCount
// requests per second, same burst) sits in front of the transport as a
// local backstop against bursts of worker goroutines; its ceiling is well
// above the shared broker-side bucket's rate, which remains the
// authoritative limiter (internal/broker).
func NewClient(workerCount int) *Client {
	if workerCount < 1 {
		workerCount = 1
	}

	dialer := &net.Dialer{Timeout: 5 * time.Second}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, "tcp4", addr)
		},
		MaxIdleConnsPerHost: workerCount,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		http:    &http.Client{Transport: transport, Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Limit(workerCount*2), workerCount*2),
	}
}

type forecastResponse struct {
	CurrentWeather *struct {
		Temperature float64 `json:"temperature"`
		WeatherCode int     `json:"weathercode"`
		Time        int64   `json:"time"`
	} `json:"current_weather"`
}

// overridingBackOff lets a 429's Retry-After header preempt the next
// computed delay exactly once, then falls back to the wrapped policy. Every
// retry, overridden or not, counts against the wrapped policy's retry limit.
// Computed delays get full jitter: a uniform draw from [0, delay].
type overridingBackOff struct {
	base     backoff.BackOff
	override time.Duration
}

func (o *overridingBackOff) NextBackOff() time.Duration {
	d := o.base.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	if o.override > 0 {
		d = o.override
		o.override = 0
		return d
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func (o *overridingBackOff) Reset() { o.base.Reset() }

// Fetch implements spec.md §4.4's contract: GET the upstream forecast
// endpoint, map the weather code, and set recorded_at from the upstream
// observation time. Transient failures (5xx, 429, network errors) are
// retried with full-jitter exponential backoff up to 5 attempts; a 429's
// Retry-After header overrides the computed delay for the next attempt.
func (c *Client) Fetch(ctx context.Context, loc models.Location) (models.Observation, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.Observation{}, fmt.Errorf("fetchclient: rate limiter wait: %w", err)
	}

	exp := backoff.NewExponentialBackOff()
	exp.MaxInterval = maxBackoffDelay
	exp.MaxElapsedTime = 0      // bounded by maxRetries, not elapsed wall time
	exp.RandomizationFactor = 0 // jitter is applied by overridingBackOff

	var obs models.Observation
	policy := &overridingBackOff{base: backoff.WithMaxRetries(exp, maxRetries)}

	operation := func() error {
		result, retryAfter, err := c.doRequest(ctx, loc)
		if err != nil {
			if retryAfter > 0 {
				policy.override = retryAfter
				return err
			}
			var perm *permanentFetchError
			if errors.As(err, &perm) {
				return backoff.Permanent(err)
			}
			return err
		}
		obs = result
		return nil
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return models.Observation{}, fmt.Errorf("fetchclient: fetch %s: %w", loc.Name, err)
	}
	return obs, nil
}

func (c *Client) doRequest(ctx context.Context, loc models.Location) (models.Observation, time.Duration, error) {
	url := fmt.Sprintf(upstreamURL, loc.Lat, loc.Lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return models.Observation{}, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "weathertelemetry/1.0")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return models.Observation{}, 0, fmt.Errorf("%w (request %s): %v", ErrTimeout, requestID, err)
		}
		return models.Observation{}, 0, fmt.Errorf("do request %s: %w", requestID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return models.Observation{}, retryAfterDuration(resp.Header.Get("Retry-After")), fmt.Errorf("%w (request %s): %s", ErrThrottled, requestID, resp.Status)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		// Non-429 4xx (bad request, not found, ...) won't be fixed by retrying.
		return models.Observation{}, 0, &permanentFetchError{err: fmt.Errorf("upstream status (request %s): %s", requestID, resp.Status)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Observation{}, 0, fmt.Errorf("upstream status (request %s): %s", requestID, resp.Status)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Observation{}, 0, &permanentFetchError{err: fmt.Errorf("decode response: %w", err)}
	}
	if body.CurrentWeather == nil {
		return models.Observation{}, 0, &permanentFetchError{err: fmt.Errorf("response missing current_weather")}
	}

	return models.Observation{
		City:        loc.Name,
		Lat:         loc.Lat,
		Lon:         loc.Lon,
		Temperature: body.CurrentWeather.Temperature,
		Condition:   conditionForCode(body.CurrentWeather.WeatherCode),
		RecordedAt:  time.Unix(body.CurrentWeather.Time, 0).UTC(),
	}, nil
}

func retryAfterDuration(header string) time.Duration {
	if header == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Second
}

// permanentFetchError marks a response that retrying would not fix (a
// malformed or incomplete payload), as opposed to network errors and 5xx/429
// statuses which are worth retrying.
type permanentFetchError struct{ err error }

func (p *permanentFetchError) Error() string { return p.err.Error() }
func (p *permanentFetchError) Unwrap() error { return p.err }
