// Package services wires connections, approvals and the two pipelines
// together for the CLI and the terminal UI.
package services
