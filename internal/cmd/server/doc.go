// Package serverrun boots a tickq server process: runtime, HTTP API, and
// signal-aware shutdown.
package serverrun
