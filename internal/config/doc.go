// Package config loads the alert service settings once at startup.
//
// Values come from an optional config.yaml and the environment, with the
// environment names the deployed function has always used. The resulting
// Config is passed explicitly to whatever needs it.
package config
