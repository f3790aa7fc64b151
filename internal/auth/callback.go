package auth

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
)

// callbackServer receives the authorization code redirect on a loopback
// port. The listener is bound before the browser is opened so the redirect
// URI is known up front.
type callbackServer struct {
	listener net.Listener
	server   *http.Server
	state    string
	codeCh   chan string
	errCh    chan error
}

func listenCallback(state string) (*callbackServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting callback listener: %w", err)
	}

	cs := &callbackServer{
		listener: listener,
		state:    state,
		codeCh:   make(chan string, 1),
		errCh:    make(chan error, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", cs.handle)
	cs.server = &http.Server{Handler: mux}

	go func() {
		if err := cs.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			cs.fail(err)
		}
	}()
	return cs, nil
}

// RedirectURI is the loopback URL registered with the provider.
func (cs *callbackServer) RedirectURI() string {
	return fmt.Sprintf("http://127.0.0.1:%d/callback", cs.listener.Addr().(*net.TCPAddr).Port)
}

func (cs *callbackServer) handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("state") != cs.state {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "<html><body><h1>Error</h1><p>invalid state parameter</p></body></html>")
		cs.fail(fmt.Errorf("OAuth2 callback error: invalid state parameter"))
		return
	}
	code := q.Get("code")
	if code == "" {
		errMsg := q.Get("error")
		if errMsg == "" {
			errMsg = "no code in callback"
		}
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "<html><body><h1>Error</h1><p>%s</p></body></html>", html.EscapeString(errMsg))
		cs.fail(fmt.Errorf("OAuth2 callback error: %s", errMsg))
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "<html><body><h1>Signed in</h1><p>You can close this tab and return to assertify.</p></body></html>")
	select {
	case cs.codeCh <- code:
	default:
	}
}

func (cs *callbackServer) fail(err error) {
	select {
	case cs.errCh <- err:
	default:
	}
}

// Wait blocks until a code arrives, the callback fails, or ctx is done. The
// server is shut down in every case.
func (cs *callbackServer) Wait(ctx context.Context) (string, error) {
	defer cs.server.Shutdown(context.Background())
	select {
	case code := <-cs.codeCh:
		return code, nil
	case err := <-cs.errCh:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the server without waiting for a code.
func (cs *callbackServer) Close() error {
	return cs.server.Close()
}
