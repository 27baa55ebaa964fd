// Package auth authenticates requests that operate on the cache.
//
// An Authenticator checks the credentials carried in request headers: a
// hashed API key, an HS256 JWT, or either through CompositeAuthenticator.
// Middleware puts the resulting Identity in the request context and answers
// 401 when no credentials check out. Any authenticated identity may run any
// cache operation.
package auth
