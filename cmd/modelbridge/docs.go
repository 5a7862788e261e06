package main

// General API documentation for swaggo. Regenerate internal/httpapi/docs with
// `swag init -g cmd/modelbridge/docs.go -o internal/httpapi/docs`.
//
// @title           modelbridge API
// @version         1.0
// @description     HTTP API for a single on-device model session: completion, embeddings, downloads and lifecycle.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
