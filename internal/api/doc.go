// Package api provides the HTTP control surface for HomeSync Core.
//
// It exposes device control and mode operations, state reads for dashboard
// rendering, and realtime/history telemetry queries backed by the topic
// cache and the telemetry store.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
