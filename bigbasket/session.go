package bigbasket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/snakeeebyte/BigBasketScraper/pipeline"
)

const (
	listingPath      = "listing-svc/v2/products"
	categoryTreePath = "ui-svc/v1/category-tree"
	requestTimeout   = 15 * time.Second

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

var baseHeaders = map[string]string{
	"accept":          "application/json, text/plain, */*",
	"accept-language": "en-US,en;q=0.9",
	"x-channel":       "BB-WEB",
}

// Transport hands out warmed-up sessions. Each session is pinned to one
// proxy and one user-agent profile for its lifetime; rotation happens by
// drawing fresh ones per session, not per request.
type Transport struct {
	baseURL    string
	proxies    []string
	agents     []map[string]string
	maxRetries int
	backoffMin time.Duration
	backoffMax time.Duration
	perSecond  float64
	logger     *slog.Logger
}

func NewTransport(cfg pipeline.Config, logger *slog.Logger) (*Transport, error) {
	proxies, err := loadStringList(cfg.ProxiesFile)
	if err != nil {
		return nil, fmt.Errorf("proxies: %w", err)
	}
	agents, err := loadHeaderList(cfg.UserAgentsFile)
	if err != nil {
		return nil, fmt.Errorf("user agents: %w", err)
	}
	return &Transport{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/") + "/",
		proxies:    proxies,
		agents:     agents,
		maxRetries: cfg.MaxRetries,
		backoffMin: cfg.BackoffMin,
		backoffMax: cfg.BackoffMax,
		perSecond:  cfg.RequestsPerSecond,
		logger:     logger,
	}, nil
}

func (t *Transport) Session(ctx context.Context) (pipeline.Session, error) {
	return t.newSession(ctx)
}

func (t *Transport) newSession(ctx context.Context) (*Session, error) {
	var lastErr error

	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		client := resty.New().
			SetTimeout(requestTimeout).
			SetHeaders(baseHeaders)
		for k, v := range t.pickAgent() {
			client.SetHeader(k, v)
		}
		if proxy := t.pickProxy(); proxy != "" {
			client.SetProxy(proxy)
		}

		if err := t.warmUp(ctx, client); err != nil {
			lastErr = err
			t.logger.Warn("session warm-up failed", "attempt", attempt, "err", err)
			if attempt < t.maxRetries {
				backoffWait(ctx, t.backoffMin, t.backoffMax)
			}
			continue
		}

		limit := rate.Inf
		if t.perSecond > 0 {
			limit = rate.Limit(t.perSecond)
		}
		return &Session{
			client:  client,
			baseURL: t.baseURL,
			limiter: rate.NewLimiter(limit, 1),
		}, nil
	}

	return nil, fmt.Errorf("no usable session after %d attempts: %w", t.maxRetries, lastErr)
}

// warmUp loads the homepage through the candidate client and rejects clients
// the site answers with an error or a block page.
func (t *Transport) warmUp(ctx context.Context, client *resty.Client) error {
	resp, err := client.R().SetContext(ctx).Get(t.baseURL)
	if err != nil {
		return &pipeline.TransportError{Err: err}
	}
	if resp.StatusCode() != http.StatusOK {
		return &pipeline.TransportError{Status: resp.StatusCode()}
	}
	return checkBlockPage(resp.Body())
}

// checkBlockPage flags the HTML served to throttled clients: an access-denied
// title, or no title at all.
func checkBlockPage(body []byte) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("warm-up html: %w", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return errors.New("warm-up page has no title")
	}
	if strings.Contains(strings.ToLower(title), "access denied") {
		return errors.New("warm-up page is a block page")
	}
	return nil
}

func (t *Transport) pickAgent() map[string]string {
	if len(t.agents) == 0 {
		return map[string]string{"user-agent": defaultUserAgent}
	}
	return t.agents[rand.Intn(len(t.agents))]
}

func (t *Transport) pickProxy() string {
	if len(t.proxies) == 0 {
		return ""
	}
	return t.proxies[rand.Intn(len(t.proxies))]
}

// Session is one worker's lane to the site, paced by its own limiter.
type Session struct {
	client  *resty.Client
	baseURL string
	limiter *rate.Limiter
}

func (s *Session) FetchPage(ctx context.Context, task pipeline.Task, page int) ([]byte, error) {
	raw, status, err := s.get(ctx, s.baseURL+listingPath, map[string]string{
		"type": task.Kind,
		"slug": task.Slug,
		"page": strconv.Itoa(page),
	})
	if err != nil {
		return nil, &pipeline.TransportError{Err: err}
	}
	switch status {
	case http.StatusNoContent:
		return nil, pipeline.ErrNoMoreContent
	case http.StatusOK:
		return raw, nil
	default:
		return nil, &pipeline.TransportError{Status: status}
	}
}

func (s *Session) get(ctx context.Context, url string, query map[string]string) ([]byte, int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req := s.client.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Get(url)
	if err != nil {
		return nil, 0, err
	}
	return resp.Body(), resp.StatusCode(), nil
}

func (s *Session) Close() {
	s.client.GetClient().CloseIdleConnections()
}

func loadStringList(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

func loadHeaderList(path string) ([]map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list []map[string]string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

func backoffWait(ctx context.Context, min, max time.Duration) {
	d := min
	if max > min {
		d += time.Duration(rand.Int63n(int64(max - min)))
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
