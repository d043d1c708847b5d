// Package app contains the core application logic. It loads the job
// configuration, wires the store, engine, tracker, pipeline and scheduler for
// each job, and runs them, decoupled from any specific entrypoint like a CLI.
package app
