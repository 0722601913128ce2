// Package collyfetcher implements fortification.PageFetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// Waiter blocks until the next request to rawURL may proceed.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Observer records the outcome of each request.
type Observer interface {
	ObserveRequest(rawURL, status string, bytesRead int)
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithWaiter throttles every fetch through w.
func WithWaiter(w Waiter) Option {
	return func(f *Fetcher) { f.waiter = w }
}

// WithObserver reports every fetch to o.
func WithObserver(o Observer) Option {
	return func(f *Fetcher) { f.observer = o }
}

// Fetcher fetches HTML pages with a Colly collector cloned per request.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	waiter        Waiter
	observer      Observer
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config, opts ...Option) *Fetcher {
	c := colly.NewCollector(colly.Async(false))
	// The listing links the same article more than once and clones share
	// the visited set, so revisits must be allowed.
	c.AllowURLRevisit = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.WithTransport(newHTTPTransport())
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	// Clones share the backend client, so the timeout is set once here.
	c.SetRequestTimeout(timeout)

	f := &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch executes a single HTTP GET and returns the response body.
// Non-2xx responses are reported as errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if f.waiter != nil {
		if err := f.waiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("colly fetch %s: %w", rawURL, err)
		}
	}

	collector := f.buildCollector()
	collector.Context = ctx
	res := &fetchResult{}
	f.configureCollectorHooks(collector, res)

	out, err := f.runCollector(ctx, collector, rawURL, res)
	if err != nil && out == nil {
		f.observeLabel(rawURL, "canceled", 0)
		return nil, err
	}
	f.observe(rawURL, out.status, err, len(out.body))
	if err != nil {
		return nil, err
	}
	return out.body, nil
}

// fetchResult is written by the collector hooks on the visiting goroutine and
// handed back over a channel once Visit returns.
type fetchResult struct {
	body   []byte
	status int
	err    error
}

// buildCollector clones the base collector so callbacks stay per request.
func (f *Fetcher) buildCollector() *colly.Collector {
	return f.baseCollector.Clone()
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, res *fetchResult) {
	hooks.OnResponse(func(r *colly.Response) {
		res.status = r.StatusCode
		res.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			res.status = r.StatusCode
		}
		res.err = err
	})
}

// runCollector visits url on its own goroutine. On cancellation it returns a
// nil result and never touches res again; the collector context aborts the
// in-flight request.
func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, res *fetchResult) (*fetchResult, error) {
	done := make(chan fetchResult, 1)
	go func() {
		visitErr := collector.Visit(url)
		out := *res
		if out.err == nil {
			out.err = visitErr
		}
		done <- out
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case out := <-done:
		if out.err != nil {
			return &out, fmt.Errorf("colly fetch %s: %w", url, out.err)
		}
		return &out, nil
	}
}

func (f *Fetcher) observe(rawURL string, status int, err error, n int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	} else if err == nil {
		label = "ok"
	}
	f.observeLabel(rawURL, label, n)
}

func (f *Fetcher) observeLabel(rawURL, label string, n int) {
	if f.observer == nil {
		return
	}
	f.observer.ObserveRequest(rawURL, label, n)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
