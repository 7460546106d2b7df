// Package backend is the typed client of the presence backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/verishda/verishda/internal/errors"
)

// API is the set of backend calls the session actor relies on.
type API interface {
	GetSites(ctx context.Context) ([]Site, error)
	PostHello(ctx context.Context, siteID string) error
	GetPresence(ctx context.Context, q PresenceQuery) ([]Presence, error)
	PutFavorite(ctx context.Context, userID string) error
	DeleteFavorite(ctx context.Context, userID string) error
	PutAnnouncements(ctx context.Context, siteID string, announcements []PresenceAnnouncement) error
}

// TokenFunc returns the access token to present on the next call.
type TokenFunc func() string

// StatusError is returned for non-2xx responses other than 401.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

type HTTPClient struct {
	baseURL *url.URL
	token   TokenFunc
	http    *http.Client
}

var _ API = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, token TokenFunc, httpClient *http.Client) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing api base url %q", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{baseURL: u, token: token, http: httpClient}, nil
}

func (c *HTTPClient) GetSites(ctx context.Context) ([]Site, error) {
	var sites []Site
	if err := c.do(ctx, http.MethodGet, "/api/sites", nil, nil, &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

func (c *HTTPClient) PostHello(ctx context.Context, siteID string) error {
	return c.do(ctx, http.MethodPost, "/api/sites/"+url.PathEscape(siteID)+"/hello", nil, nil, nil)
}

func (c *HTTPClient) GetPresence(ctx context.Context, q PresenceQuery) ([]Presence, error) {
	params := url.Values{}
	if term := strings.TrimSpace(q.Term); term != "" {
		params.Set("term", term)
	}
	if q.FavoritesOnly {
		params.Set("favorites", "true")
	}
	var presences []Presence
	if err := c.do(ctx, http.MethodGet, "/api/sites/"+url.PathEscape(q.SiteID)+"/presence", params, nil, &presences); err != nil {
		return nil, err
	}
	return presences, nil
}

func (c *HTTPClient) PutFavorite(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPut, "/api/favorites/"+url.PathEscape(userID), nil, nil, nil)
}

func (c *HTTPClient) DeleteFavorite(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodDelete, "/api/favorites/"+url.PathEscape(userID), nil, nil, nil)
}

func (c *HTTPClient) PutAnnouncements(ctx context.Context, siteID string, announcements []PresenceAnnouncement) error {
	if announcements == nil {
		announcements = []PresenceAnnouncement{}
	}
	return c.do(ctx, http.MethodPut, "/api/sites/"+url.PathEscape(siteID)+"/announce", nil, announcements, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s", method, path)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrapf(err, "building %s %s", method, path)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return errors.Wrapf(errors.ErrUnauthorized, "%s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decoding %s %s", method, path)
	}
	return nil
}

// IsTransportError reports whether err means the backend could not be reached
// at all, as opposed to answering with an error.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return !errors.Is(err, context.Canceled)
	}
	return false
}
