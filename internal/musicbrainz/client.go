package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL   = "https://musicbrainz.org/ws/2"
	defaultUserAgent = "Genregraphy/0.1 (https://github.com/notbigmuzzy/genregraphy)"
	defaultRate      = 1.0 // MusicBrainz allows 1 request per second

	// Retry configuration
	maxRetries   = 3
	initialDelay = 2 * time.Second
	maxDelay     = 30 * time.Second
)

// ErrNotFound is returned when MusicBrainz answers 404 for a lookup.
var ErrNotFound = errors.New("not found")

// Client provides access to the MusicBrainz API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	log        logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at another server, e.g. a mirror.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithUserAgent sets the User-Agent MusicBrainz uses to identify callers.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit sets the maximum number of requests per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a new MusicBrainz API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		limiter:    rate.NewLimiter(rate.Limit(defaultRate), 1),
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchReleaseGroups runs a Lucene release-group search and returns one
// page of results together with the total hit count.
func (c *Client) SearchReleaseGroups(ctx context.Context, query string, limit, offset int) (*ReleaseGroupPage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}

	var result releaseGroupSearchResponse
	if err := c.get(ctx, "release-group", params, &result); err != nil {
		return nil, errors.Wrap(err, "search release groups")
	}

	return &ReleaseGroupPage{
		Count:         result.Count,
		Offset:        result.Offset,
		ReleaseGroups: convertReleaseGroups(result.ReleaseGroups),
	}, nil
}

// GetReleaseGroup fetches a release group with its releases.
func (c *Client) GetReleaseGroup(ctx context.Context, mbid string) (*ReleaseGroupDetails, error) {
	params := url.Values{}
	params.Set("inc", "releases")

	var result releaseGroupResult
	if err := c.get(ctx, "release-group/"+url.PathEscape(mbid), params, &result); err != nil {
		return nil, errors.Wrapf(err, "get release group %s", mbid)
	}

	details := &ReleaseGroupDetails{
		ReleaseGroup: convertReleaseGroup(result),
	}
	for _, r := range result.Releases {
		details.Releases = append(details.Releases, Release{
			ID:    r.ID,
			Title: r.Title,
			Date:  r.Date,
		})
	}
	return details, nil
}

// GetRelease fetches a release with its tracks and release group.
func (c *Client) GetRelease(ctx context.Context, mbid string) (*ReleaseDetails, error) {
	params := url.Values{}
	params.Set("inc", "recordings+release-groups+artist-credits")

	var result releaseDetailsResponse
	if err := c.get(ctx, "release/"+url.PathEscape(mbid), params, &result); err != nil {
		return nil, errors.Wrapf(err, "get release %s", mbid)
	}

	return convertReleaseDetails(result), nil
}

// get performs a rate-limited, retried GET of path and decodes the JSON body.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("fmt", "json")
	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return errors.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Errorf("API status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// waitForRateLimit blocks until the limiter admits another request.
func (c *Client) waitForRateLimit(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// doRequestWithRetry executes an HTTP request with exponential backoff retry.
// Retries on 5xx errors and network errors.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			c.logger().WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay,
				"url":     req.URL.Path,
			}).WithError(lastErr).Debug("retrying MusicBrainz request")

			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay = min(delay*2, maxDelay)
		}

		// Re-apply rate limit after retry delay
		if err := c.waitForRateLimit(ctx); err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		// Success or client error (4xx) - don't retry
		if resp.StatusCode < 500 {
			return resp, nil
		}

		// Server error (5xx) - retry
		resp.Body.Close()
		lastErr = errors.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil, errors.Wrapf(lastErr, "request failed after %d attempts", maxRetries+1)
}

func (c *Client) logger() logrus.FieldLogger {
	if c.log == nil {
		return logrus.StandardLogger()
	}
	return c.log
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// convertReleaseGroups converts raw API results to ReleaseGroup structs,
// keeping the server's relevance order.
func convertReleaseGroups(results []releaseGroupResult) []ReleaseGroup {
	groups := make([]ReleaseGroup, 0, len(results))
	for _, r := range results {
		groups = append(groups, convertReleaseGroup(r))
	}
	return groups
}

func convertReleaseGroup(r releaseGroupResult) ReleaseGroup {
	rg := ReleaseGroup{
		ID:             r.ID,
		Title:          r.Title,
		PrimaryType:    r.PrimaryType,
		SecondaryTypes: r.SecondaryTypes,
		FirstRelease:   r.FirstRelease,
		Artist:         extractArtist(r.ArtistCredit),
	}
	if len(r.ArtistCredit) > 0 {
		rg.ArtistID = r.ArtistCredit[0].Artist.ID
		rg.PrimaryArtist = r.ArtistCredit[0].Artist.Name
	}
	return rg
}

// convertReleaseDetails converts a raw release details response.
func convertReleaseDetails(r releaseDetailsResponse) *ReleaseDetails {
	details := &ReleaseDetails{
		Release: Release{
			ID:     r.ID,
			Title:  r.Title,
			Artist: extractArtist(r.ArtistCredit),
			Date:   r.Date,
		},
	}

	if r.ReleaseGroup != nil {
		details.ReleaseGroupID = r.ReleaseGroup.ID
		details.ReleaseGroupFirstRelease = r.ReleaseGroup.FirstRelease
	}

	for _, m := range r.Media {
		for _, t := range m.Tracks {
			track := Track{
				Position: t.Position,
				Title:    t.Title,
			}
			if t.Recording != nil {
				track.RecordingID = t.Recording.ID
				if t.Recording.Title != "" {
					track.Title = t.Recording.Title
				}
			}
			details.Tracks = append(details.Tracks, track)
		}
	}

	return details
}

// extractArtist extracts the artist name from artist credits.
func extractArtist(credits []artistCredit) string {
	if len(credits) == 0 {
		return ""
	}

	parts := make([]string, 0, len(credits))
	for _, c := range credits {
		name := c.Name
		if name == "" {
			name = c.Artist.Name
		}
		parts = append(parts, name+c.JoinPhrase)
	}
	return strings.Join(parts, "")
}

// ExtractYear returns the year portion of a date string (YYYY-MM-DD or YYYY).
func ExtractYear(date string) string {
	if len(date) >= 4 {
		return date[:4]
	}
	return date
}
