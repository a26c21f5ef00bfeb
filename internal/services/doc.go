// Package services wires the collectiond managers into a single registry
// consumed by the RPC layer and the CLI.
package services
