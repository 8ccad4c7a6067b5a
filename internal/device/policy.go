package device

// Source identifies the origin of a state mutation.
type Source int

// Mutation sources.
const (
	// SourceHTTP marks writes originating from the control API.
	SourceHTTP Source = iota

	// SourceBus marks writes originating from inbound MQTT commands.
	SourceBus
)

// Gate decides whether a mutation from the given source may proceed
// against the current record. Returning false drops the mutation silently
// (logged at debug, no error to the caller).
//
// The default policy is permissive: bus commands apply even when a device
// is in manual mode. Installations that want manual mode to shut out bus
// writers can swap in a stricter gate without touching the store.
type Gate func(rec *Record, source Source) bool

// PermissiveGate allows every mutation. This is the default policy.
func PermissiveGate(*Record, Source) bool {
	return true
}

// ManualModeGate rejects bus-originated writes while a device has
// manual_override set. HTTP writes always pass.
func ManualModeGate(rec *Record, source Source) bool {
	if source == SourceBus && rec.ManualOverride == OverrideOn {
		return false
	}
	return true
}
