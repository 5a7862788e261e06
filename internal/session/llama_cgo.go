//go:build llama

package session

// cgo link directives for the in-process llama engine.
// - rpath $ORIGIN lets the loader find libllama.so next to the binary (./bin).
// - -L${SRCDIR}/../../bin lets the linker find it when building with -tags=llama.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama
*/
import "C"

// LlamaBuilt reports whether this binary carries the native engine.
func LlamaBuilt() bool { return llamaBuilt }
