package server

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/desertthunder/tapedeck/internal/shared"
)

const defaultCallbackPath = "/callback"

// CallbackResult is the outcome of one OAuth redirect.
type CallbackResult struct {
	Code string
	Err  error
}

// OAuthHandler receives the authorization code redirect for the code flow.
type OAuthHandler struct {
	path   string
	state  string
	result chan CallbackResult

	mu   sync.Mutex
	done bool
}

// NewOAuthHandler creates a handler for the path of redirectURI that accepts only the given state.
func NewOAuthHandler(redirectURI, state string) *OAuthHandler {
	return &OAuthHandler{
		path:   CallbackPath(redirectURI),
		state:  state,
		result: make(chan CallbackResult, 1),
	}
}

// CallbackPath extracts the path of a redirect URI, defaulting to /callback.
func CallbackPath(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Path == "" || u.Path == "/" {
		return defaultCallbackPath
	}
	return u.Path
}

func (h *OAuthHandler) Routes() []string {
	return []string{http.MethodGet + " " + h.path}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.done = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.send(CallbackResult{Err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))
		h.send(CallbackResult{Err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	h.send(CallbackResult{Code: code})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, successPage)
}

func (h *OAuthHandler) send(res CallbackResult) {
	h.result <- res
	close(h.result)
}

// Wait blocks until the callback arrives or ctx is done. A done ctx returns [shared.ErrTimeout].
func (h *OAuthHandler) Wait(ctx context.Context) (string, error) {
	select {
	case res := <-h.result:
		return res.Code, res.Err
	case <-ctx.Done():
		return "", fmt.Errorf("%w: no authorization callback: %v", shared.ErrTimeout, ctx.Err())
	}
}

const successPage = `<!DOCTYPE html>
<html>
<head>
    <title>tapedeck authorized</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Authorized</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`
