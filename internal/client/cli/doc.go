// Package cli is the companion command-line client.
//
// Every command opens the local store, probes the gateway once, runs
// against the sync orchestrator and drains background pushes before it
// exits. `watch` instead stays up, following connectivity and pushing
// pending changes on each reconnect until interrupted.
package cli
