package ports

import (
	"context"
	"net/url"

	"github.com/jkalmus/defifolio/internal/domain"
)

// WalletClient is the wallet pairing capability. Connect returns a pending
// session handle; approval, rejection and disconnection arrive on Events.
type WalletClient interface {
	Connect(ctx context.Context, endpoint *url.URL) (domain.Session, error)
	Disconnect(ctx context.Context, session domain.Session) error
	Events() <-chan domain.ConnectionEvent
}
