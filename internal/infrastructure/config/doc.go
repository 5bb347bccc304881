// Package config provides configuration loading for the mqtt-inbound daemon.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. The loading order is: hardcoded defaults, then file values,
// then MQTTIN_* environment variables. The result is validated before use,
// with all problems reported in one error.
//
// # Sections
//
//	mqtt:      broker address, credentials, session and stop-action policy
//	inbound:   initial topic list, completion timeout, recovery interval
//	store:     SQLite message store location and pragmas
//	influxdb:  optional connection event sink
//	metrics:   optional Prometheus endpoint
//	logging:   level, format, output
//
// # Security
//
// Credentials and tokens should come from the environment
// (MQTTIN_MQTT_PASSWORD, MQTTIN_INFLUXDB_TOKEN) rather than the file.
package config
