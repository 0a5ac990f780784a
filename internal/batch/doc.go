// Package batch defines the two narrow contracts through which the tick
// engine touches the batch-execution backend: Launcher starts a job and
// returns its execution identifiers, StatusPoller reports an execution's
// current state. The engine never interprets job params and never calls
// Launch more than once per leased entry.
//
// The runner subpackage provides an HTTP implementation of both contracts
// against the training-runner REST API.
package batch
