// Package server exposes the job control API over HTTP: job CRUD on JSON
// endpoints and live transition streams over websockets.
package server
