// Package proxy implements the local HTTP proxy the panel loads.
//
// Requests whose path matches the download trigger are answered with an
// empty 204 and handed to an Interceptor off the request path. Everything
// else is forwarded to the upstream origin with the frame-blocking response
// headers removed.
package proxy
