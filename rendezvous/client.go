// Package rendezvous is the native client's half of the browser login
// handoff. The client opens a stream keyed by a random correlation id, sends
// the user's browser to the identity provider with that id as the OAuth
// state, and receives the authorization code over the stream once the
// provider redirects the browser to the backend.
package rendezvous

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/verishda/verishda/internal/errors"
)

const (
	LoginRequestsPath = "/api/public/oidc/login-requests/"
	LoginTargetPath   = "/api/public/oidc/login-target"
)

// RedirectURL is the login target the identity provider redirects the
// browser to.
func RedirectURL(apiBaseURL string) string {
	return strings.TrimSuffix(apiBaseURL, "/") + LoginTargetPath
}

type Client struct {
	baseURL string
	dialer  *websocket.Dialer
}

func NewClient(apiBaseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(apiBaseURL, "/"),
		dialer:  websocket.DefaultDialer,
	}
}

// Subscription is an open login request stream.
type Subscription struct {
	conn      *websocket.Conn
	closeOnce sync.Once
}

// Subscribe registers correlationID with the backend and opens the stream the
// code will arrive on. A correlation id already pending yields
// ErrLoginConflict.
func (c *Client) Subscribe(ctx context.Context, correlationID string) (*Subscription, error) {
	u, err := url.Parse(c.baseURL + LoginRequestsPath + url.PathEscape(correlationID))
	if err != nil {
		return nil, errors.Wrapf(err, "building login request url")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}

	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return nil, errors.ErrLoginConflict
		}
		return nil, errors.Wrapf(err, "opening login request stream")
	}
	return &Subscription{conn: conn}, nil
}

// Receive waits for the authorization code. If the stream ends before a code
// arrives it returns ErrLoginAbandoned. Cancelling ctx closes the stream.
func (s *Subscription) Receive(ctx context.Context) (string, error) {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", errors.Wrapf(errors.ErrLoginAbandoned, "login request stream closed: %v", err)
		}
		if msgType == websocket.TextMessage {
			return string(data), nil
		}
	}
}

func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.conn.Close() })
	return err
}
