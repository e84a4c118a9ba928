package sender

import "context"

// Channel is the external capability that actually transmits a message
// over the messaging network. Implementations return the network's message
// identifier on success and a transport error on any failure; the dispatch
// engine never inspects the cause, only counts attempts.
type Channel interface {
	Send(ctx context.Context, accountID int64, destination, body string) (string, error)
}
