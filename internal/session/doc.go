// Package session owns the single native inference handle of one session and
// coordinates its lifecycle. It is structured into small files by concern:
//
//   - controller.go: Controller type, constructor, State/Ready, telemetry helper.
//   - config.go: Config and package defaults.
//   - errors.go: error types and helpers (IsAlreadyGenerating, IsModelNotDownloaded, ...).
//   - collaborators.go: Fetcher, Storage and Catalog interfaces (mocks in ./mocks).
//   - engine.go: Engine/Handle abstraction over the native runtime.
//   - download.go, init.go, complete.go, embed.go, lifecycle.go, catalog.go:
//     one file per operation family.
//   - stream.go: per-token delivery during generation.
//   - prompt.go: ChatML rendering used by the llama engine.
//
// Build tags and runtimes:
//
//   - In-process llama: go-llama.cpp engine, enabled with `-tags=llama`.
//     Files: engine_llama.go, llama_cgo.go (linker rpath hints).
//     A no-CGO stub is compiled when the tag is not set: engine_llama_stub.go.
//
// Generation (Complete and Embed share one flag) and Download are
// single-flight: a second call fails fast instead of queueing. Init, Reset
// and Destroy serialize on the controller mutex.
package session
