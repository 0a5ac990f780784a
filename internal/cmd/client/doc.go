// Package client contains Cobra CLI commands that drive a tickq server over
// its HTTP API. The server address comes from TICKQ_HTTP or defaults to
// http://127.0.0.1:8080.
package client
