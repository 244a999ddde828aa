// Package orchestrator wires the resolve → materialize → transform → render
// pipeline behind a single entry point. Definitions are resolved through a
// SourceRegistry (YAML/JSON files and URLs, HCL files, Postgres), compiled
// plans are cached per reference and the result is handed to a named
// renderer.
package orchestrator
