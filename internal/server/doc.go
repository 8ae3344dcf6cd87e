// Package server runs the short-lived local HTTP server that receives the Spotify OAuth2 redirect.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] registers
// method-qualified patterns ("GET /callback") on an [http.ServeMux], so a wrong method gets a 405 from the mux.
// [Middleware] wraps handlers in reverse order (last added executes first).
//
// # OAuth Callback Handler
//
// [OAuthHandler] validates the state parameter and hands the authorization code to the waiting command.
// It processes exactly one callback; later requests are rejected.
// The code is exchanged for tokens by the Spotify service, not here.
//
// # Callback Server
//
// [CallbackServer] binds the listener before returning from [CallbackServer.Start], so the browser can be
// opened immediately after.
package server
