// Package config loads all application configuration from environment
// variables and validates it before the server starts.
package config
