// Package catalog provides sources for the list of models a session can
// download: a JSON catalog served over HTTP, an Ollama server's model list,
// and a directory of GGUF files.
package catalog
