package session

import (
	"context"

	"github.com/pkg/browser"
	"github.com/verishda/verishda/rendezvous"
)

// Rendezvous opens the stream the authorization code arrives on.
type Rendezvous interface {
	Subscribe(ctx context.Context, correlationID string) (CodeStream, error)
}

type CodeStream interface {
	Receive(ctx context.Context) (string, error)
	Close() error
}

// BrowserOpener shows the provider login page to the user.
type BrowserOpener interface {
	OpenURL(url string) error
}

// SystemBrowser opens URLs in the desktop's default browser.
type SystemBrowser struct{}

func (SystemBrowser) OpenURL(url string) error {
	return browser.OpenURL(url)
}

// NoBrowser leaves opening the URL to whoever consumes LoginURLOpened.
type NoBrowser struct{}

func (NoBrowser) OpenURL(string) error {
	return nil
}

// WebsocketRendezvous adapts a rendezvous.Client to the actor.
type WebsocketRendezvous struct {
	Client *rendezvous.Client
}

func (r WebsocketRendezvous) Subscribe(ctx context.Context, correlationID string) (CodeStream, error) {
	sub, err := r.Client.Subscribe(ctx, correlationID)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
