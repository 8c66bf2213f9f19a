// Package config loads application settings from defaults, an optional
// config.yaml in the working directory, and TASKLY_-prefixed environment
// variables, then validates them before any component is constructed.
package config
