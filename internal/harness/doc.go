// Package harness replays recorded chain-engine sessions through the
// adapter and compares the resulting event log against golden files.
//
// A scenario is a YAML file naming a config document and an ordered list of
// engine events. ReplayEngine stands in for the external chain engine and
// feeds those events to the adapter's callbacks, so the whole
// config → callbacks → event log path runs without a network.
//
// Event payloads are written as JSON strings in the YAML so their key order
// reaches the log exactly as written.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
