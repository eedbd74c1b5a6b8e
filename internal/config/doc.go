// Package config loads the service configuration.
//
// Values come from built-in defaults, an optional YAML file, and GENFORGE_*
// environment variables, in increasing order of precedence. Provider API keys
// are normally supplied only through the environment. Load validates the
// result with struct tags and fails fast on anything missing or out of range.
package config
