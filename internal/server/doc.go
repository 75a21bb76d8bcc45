// Package server implements the HTTP and websocket surface of gonotify.
//
// The Hub ties each websocket session to the shared registry and router:
// sessions register when they open, their frames are dispatched by type, and
// when they close they are unregistered and the remaining sessions are told.
// Handlers, routes, origin checks, and the http.Server lifecycle live in
// their own files so each can be tested alone.
package server
