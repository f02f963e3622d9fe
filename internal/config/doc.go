// Package config loads the broker's YAML configuration.
//
// Values may reference environment variables as ${VAR}; they are expanded
// before parsing. LoadAndValidate is the usual entry point: it applies
// defaults for every optional field and rejects incomplete configs with an
// error naming the offending dotted path.
package config
