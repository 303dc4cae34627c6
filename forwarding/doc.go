// Package forwarding realises UE to UPF bindings as switch table entries.
//
// The switch steers each UE's uplink by matching the UE IPv4 address and
// rewriting the destination to the bound gateway. Programmer turns the
// difference between two binding sets into AddEntry and ModifyEntry calls
// on a types.SwitchConfigClient; LogClient is a dry-run client that only
// logs the entries.
package forwarding
