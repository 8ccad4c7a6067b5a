// Package config loads and validates HomeSync configuration.
//
// Configuration is read from a YAML file, merged over hardcoded defaults,
// and finally overridden by HOMESYNC_* environment variables. Validation
// runs last so every source is checked the same way.
package config
