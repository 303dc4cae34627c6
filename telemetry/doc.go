// Package telemetry turns exporter measurements into resolved engine inputs.
//
// A types.LoadSource answers "how many Mbps is this device sending"; the
// PrometheusSource asks a Prometheus server, Static answers from a table.
// The Resolver fans those queries out for a whole pass and substitutes a
// default for every failed or missing reading, so the assignment policies only
// ever see resolved demand. RANClient discovers the UE tunnels a RAN
// simulator has brought up.
package telemetry
