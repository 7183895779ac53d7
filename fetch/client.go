/*
Package fetch downloads the servant and quest catalog from Atlas Academy.

PURPOSE:
  Replaces the manual fetch scripts: downloads a region's exports, runs
  them through the factory and hands the result to a CatalogWriter.

SOURCES:
  {BaseURL}/{region}/nice_servant.json            NA servants
  {BaseURL}/{region}/nice_servant_lang_en.json    JP servants (English)
  {BaseURL}/{region}/nice_enums.json              enum names
  {GameDataURL}/{region}/master/mstQuest.json     quests
  {GameDataURL}/{region}/master/mstQuestPhase.json
  {GameDataURL}/{region}/master/mstSpot.json
  {GameDataURL}/{region}/master/mstWar.json

RETRIES:
  Every document is fetched with up to MaxRetries attempts, each bounded
  by Timeout, with RetryDelay between attempts. 4xx responses other than
  429 are not retried.

SEE ALSO:
  - refresh.go: Refresher, stores results and records runs
  - factory/catalog.go: Parsing
*/
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/config"
	"github.com/bondcalc/bond-engine/factory"
)

const (
	DefaultBaseURL     = "https://api.atlasacademy.io/export"
	DefaultGameDataURL = "https://git.atlasacademy.io/atlasacademy/fgo-game-data/raw/branch"
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 5 * time.Second
	DefaultTimeout     = 30 * time.Second
)

// StatusError is a non-2xx upstream response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// Retryable reports whether another attempt could succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client downloads catalog documents.
type Client struct {
	BaseURL     string
	GameDataURL string
	HTTP        *http.Client
	MaxRetries  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	Logger      *zap.Logger
}

// NewClient returns a client with the default endpoints and retry policy.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:     DefaultBaseURL,
		GameDataURL: DefaultGameDataURL,
		HTTP:        &http.Client{},
		MaxRetries:  DefaultMaxRetries,
		RetryDelay:  DefaultRetryDelay,
		Timeout:     DefaultTimeout,
		Logger:      logger,
	}
}

// NewClientFromConfig applies the catalog settings over the defaults.
// Zero values keep the default.
func NewClientFromConfig(cfg config.CatalogConfig, logger *zap.Logger) *Client {
	c := NewClient(logger)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.GameDataURL != "" {
		c.GameDataURL = strings.TrimRight(cfg.GameDataURL, "/")
	}
	if cfg.MaxRetries > 0 {
		c.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryDelay > 0 {
		c.RetryDelay = cfg.RetryDelay
	}
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	return c
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// ServantsURL is the nice servant export for region.
func (c *Client) ServantsURL(region bond.Region) string {
	file := "nice_servant.json"
	if region == bond.RegionJP {
		file = "nice_servant_lang_en.json"
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(c.BaseURL, "/"), region, file)
}

func (c *Client) enumsURL(region bond.Region) string {
	return fmt.Sprintf("%s/%s/nice_enums.json", strings.TrimRight(c.BaseURL, "/"), region)
}

func (c *Client) masterURL(region bond.Region, table string) string {
	return fmt.Sprintf("%s/%s/master/%s.json", strings.TrimRight(c.GameDataURL, "/"), region, table)
}

// FetchServants downloads and parses a region's servants.
func (c *Client) FetchServants(ctx context.Context, region bond.Region) ([]bond.Servant, *factory.Report, error) {
	raw, err := c.Get(ctx, c.ServantsURL(region))
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s servants: %w", region, err)
	}
	return factory.ParseNiceServants(raw, region)
}

// FetchQuests downloads the master quest tables in parallel and joins them.
func (c *Client) FetchQuests(ctx context.Context, region bond.Region) ([]bond.Quest, *factory.Report, error) {
	var src factory.QuestSources
	g, gctx := errgroup.WithContext(ctx)

	docs := []struct {
		url string
		dst *[]byte
	}{
		{c.masterURL(region, "mstQuest"), &src.Quests},
		{c.masterURL(region, "mstQuestPhase"), &src.Phases},
		{c.masterURL(region, "mstSpot"), &src.Spots},
		{c.masterURL(region, "mstWar"), &src.Wars},
		{c.enumsURL(region), &src.Enums},
	}
	for _, d := range docs {
		d := d
		g.Go(func() error {
			raw, err := c.Get(gctx, d.url)
			if err != nil {
				return err
			}
			*d.dst = raw
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("fetch %s quests: %w", region, err)
	}

	return factory.BuildQuests(src)
}

// =============================================================================
// HTTP
// =============================================================================

// Get downloads url, retrying transient failures.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	attempts := c.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := c.getOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == attempts {
			break
		}

		c.logger().Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("retry_in", c.RetryDelay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.RetryDelay):
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func (c *Client) getOnce(ctx context.Context, url string) ([]byte, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return http.DefaultClient
	}
	return c.HTTP
}

func (c *Client) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
