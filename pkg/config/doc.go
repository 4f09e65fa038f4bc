// Package config loads client configuration from YAML files.
//
// Every field has a default, so an empty file (or no file at all)
// yields a working configuration pointing at localhost:7624.
package config
