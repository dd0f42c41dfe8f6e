// Package auth obtains and revalidates the bearer token for the photo API
// with the OAuth2 authorization code flow.
//
// A Bootstrapper runs once per start. It exchanges a pending callback,
// keeps a stored token while it is valid, and otherwise asks the caller to
// send the user to the provider:
//
//	b := auth.NewBootstrapper(cfg, auth.NewFileStore(path))
//	d, err := b.Run(ctx, callbackURL)
//	if err != nil {
//	    return err
//	}
//	switch d.Kind {
//	case auth.Ready:
//	    client := api.New(apiBase, d.Token)
//	case auth.Redirect:
//	    fmt.Println("log in at", d.RedirectURL)
//	}
//
// Login wraps the same flow for a terminal: it prints or opens the
// authorization URL and receives the redirect on a short-lived local
// listener.
//
// The session (the token and the anti-forgery state) lives in a
// SessionStore. Memory, file, Redis and SQL implementations are provided.
package auth
