// Package config loads and validates run settings.
//
// Settings come from a YAML or JSON file (optionally wrapped in a
// "parameters" object), then environment variables, then command line
// flags, each layer overriding the previous one. ApplyDefaults fills what
// is still unset and Validate reports every problem as a
// *core.ConfigurationError.
package config
