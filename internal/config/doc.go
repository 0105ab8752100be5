// Package config loads the server and CLI settings from config.yaml and
// ANNOTATOR_* environment variables using viper, then validates them with
// go-playground/validator before anything else starts.
package config
