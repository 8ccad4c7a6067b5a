// Package router dispatches inbound bus messages.
//
// Every message on a device/... topic is decoded (malformed JSON is dropped
// with a warning), stamped with a receive timestamp when the producer did
// not supply one, cached in a bounded per-topic ring for realtime reads,
// and then routed: command topics mutate the device state store, telemetry
// topics append to the telemetry store, and the remaining topics are cached
// only.
package router
