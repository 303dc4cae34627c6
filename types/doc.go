// Package types provides the core data model and collaborator interfaces for upflb.
//
// The package holds the types shared by the assignment engine, the telemetry
// layer and the rule programmer. Keeping them here lets the internal packages
// depend on the model without importing the root upflb package.
//
// Key types:
//   - Client: A UE session together with its demand and current binding
//   - Gateway: A UPF instance with static capacity and background load
//   - Binding: One client bound to one gateway
//   - AssignmentPolicy: A selection policy producing a new binding set
//   - Logger: Structured logging interface
//   - MetricsCollector: Metrics recording interface
package types
