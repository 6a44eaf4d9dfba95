// Package delivery defines the contract every transport entrypoint satisfies.
package delivery

import "context"

// Delivery is a long-running transport (HTTP server, worker) started by main
// and stopped through its fx lifecycle hook.
type Delivery interface {
	Serve(ctx context.Context) error
}
