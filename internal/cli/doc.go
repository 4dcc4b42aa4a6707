// Package cli provides the interactive AlephNote command-line client.
//
// It wires configuration, the encrypted settings document, the local note
// store and the sync engine behind a small REPL. The prompt shows the sync
// state: [SYNCING] while a pass runs, [ERROR] after a failed one, otherwise
// the time of the last successful sync.
//
// Commands:
//   - list / show / new / edit / delete: work on the local notes
//   - sync: request a pass (coalesced with any pass already queued)
//   - status: last sync time and the failures of the last pass
//   - providers / settings / set: inspect and change the settings
//
// Changing the provider, its configuration, the proxy or an engine option
// rebuilds the note repository. The REPL is started via App.Run.
package cli
