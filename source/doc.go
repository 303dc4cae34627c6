// Package source provides built-in client source implementations.
//
// Client sources discover the UE sessions that take part in a pass.
// The package includes:
//
//   - Static: Fixed list of clients
//   - Registry: Concurrent UE registry fed by tunnel discovery and session events
//
// Custom sources can be implemented by satisfying the types.ClientSource interface.
package source
