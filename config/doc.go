// Package config loads the application configuration.
//
// Configuration comes from a YAML file, with defaults for anything left out
// and CLAUSEMARK_* environment variables applied on top. The CLI also loads
// a .env file before reading the environment.
package config
