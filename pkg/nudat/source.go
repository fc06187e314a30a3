package nudat

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/agentstation/factsync/internal/transport"
	"github.com/agentstation/factsync/pkg/constants"
	"github.com/agentstation/factsync/pkg/errors"
	"github.com/agentstation/factsync/pkg/logging"
	"github.com/agentstation/factsync/pkg/nuclide"
)

const robotsKey = "robots.txt"

// Source fetches documents from the tabular data source. Documents are
// cached for the life of the Source, so a run fetches each (Z, N) once.
type Source struct {
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
	client    *transport.Client
	cache     *gocache.Cache
	robots    bool
}

// Option configures a Source.
type Option func(*Source)

// WithBaseURL points the source at another endpoint.
func WithBaseURL(u string) Option {
	return func(s *Source) { s.baseURL = u }
}

// WithDelay sets the minimum pause between requests.
func WithDelay(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.limiter.SetLimit(rate.Every(d))
		} else {
			s.limiter.SetLimit(rate.Inf)
		}
	}
}

// WithUserAgent sets the User-Agent sent and matched against robots.txt.
func WithUserAgent(ua string) Option {
	return func(s *Source) { s.userAgent = ua }
}

// WithoutRobots skips the robots.txt check.
func WithoutRobots() Option {
	return func(s *Source) { s.robots = false }
}

// NewSource creates a source with the default endpoint and delay.
func NewSource(opts ...Option) *Source {
	s := &Source{
		baseURL:   constants.DefaultSourceURL,
		userAgent: constants.DefaultUserAgent,
		limiter:   rate.NewLimiter(rate.Every(constants.DefaultFetchDelay), 1),
		cache:     gocache.New(gocache.NoExpiration, 0),
		robots:    true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.client = transport.New("nudat",
		transport.WithUserAgent(s.userAgent),
		transport.WithLimiter(s.limiter),
	)
	return s
}

// URL is the document address for (z, n).
func (s *Source) URL(z, n int) string {
	q := url.Values{}
	q.Set("z", strconv.Itoa(z))
	q.Set("n", strconv.Itoa(n))
	return s.baseURL + "?" + q.Encode()
}

// Fetch returns the parsed document for (z, n).
func (s *Source) Fetch(ctx context.Context, z, n int) (*Document, error) {
	u := s.URL(z, n)
	if doc, ok := s.cache.Get(u); ok {
		return doc.(*Document), nil
	}

	if err := s.allowed(ctx, u); err != nil {
		return nil, err
	}

	resp, err := s.client.Get(ctx, u, nil)
	if err != nil {
		return nil, err
	}
	body, err := s.client.ReadBody(resp)
	if err != nil {
		return nil, err
	}

	doc, err := Parse(bytes.NewReader(body), u)
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Debug().Int("z", z).Int("n", n).Int("levels", len(doc.Levels)).Msg("fetched document")
	s.cache.Set(u, doc, gocache.NoExpiration)
	return doc, nil
}

// Measurements fetches the document for key and extracts its records.
func (s *Source) Measurements(ctx context.Context, key nuclide.Key) ([]Raw, error) {
	doc, err := s.Fetch(ctx, key.Z, key.N)
	if err != nil {
		return nil, err
	}
	return doc.Raw(key), nil
}

// allowed consults robots.txt once per source. An unreachable robots.txt
// allows everything; a crawl delay longer than ours slows the limiter.
func (s *Source) allowed(ctx context.Context, rawURL string) error {
	if !s.robots {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.NewValidationError("url", rawURL, err.Error())
	}

	var data *robotstxt.RobotsData
	if cached, ok := s.cache.Get(robotsKey); ok {
		data = cached.(*robotstxt.RobotsData)
	} else {
		data = s.fetchRobots(ctx, parsed)
		s.cache.Set(robotsKey, data, gocache.NoExpiration)
	}
	if data == nil {
		return nil
	}

	if group := data.FindGroup(s.userAgent); group != nil && group.CrawlDelay > 0 {
		if rate.Every(group.CrawlDelay) < s.limiter.Limit() {
			s.limiter.SetLimit(rate.Every(group.CrawlDelay))
		}
	}
	if !data.TestAgent(parsed.Path, s.userAgent) {
		return &errors.APIError{Service: "nudat", StatusCode: 403, Message: "disallowed by robots.txt", Endpoint: rawURL}
	}
	return nil
}

func (s *Source) fetchRobots(ctx context.Context, page *url.URL) *robotstxt.RobotsData {
	robotsURL := page.Scheme + "://" + page.Host + "/robots.txt"
	resp, err := s.client.Get(ctx, robotsURL, nil)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("robots.txt unavailable, assuming allowed")
		return nil
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("robots.txt unparseable, assuming allowed")
		return nil
	}
	return data
}
