// Package wire turns the textual payloads handed across the engine boundary
// into typed values. It deliberately avoids a general-purpose decoder: the
// scanners below locate the keys they need and ignore everything else, so
// terse or slightly irregular producers are accepted.
//
//   - messages.go: chat turn arrays.
//   - tools.go: tool/function specification arrays.
//   - options.go: generation options objects.
//   - scan.go: shared scanning primitives.
//   - errors.go: MalformedPayload error kind.
package wire
