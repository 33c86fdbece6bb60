// Package auth attaches credentials to outgoing RPC requests.
//
// A HeaderProvider returns the headers to add to a request. Providers
// compose with Chain, and Transport applies one to every request made
// through an http.Client:
//
//	bearer, err := auth.NewJWTBearer(auth.JWTConfig{
//	    Key:     []byte(secret),
//	    Issuer:  "web",
//	    Subject: userID,
//	}, 30*time.Second)
//	if err != nil {
//	    return err
//	}
//	client := &http.Client{Transport: auth.NewTransport(nil, auth.Chain(
//	    auth.StaticHeaders{"X-Client": "web"},
//	    bearer,
//	))}
//
// Bearer tokens come from a TokenSource: either self-signed JWTs
// (JWTSigner) or an OAuth2 client-credentials grant (ClientCredentials).
// ReuseTokenSource caches a token until shortly before it expires and
// collapses concurrent refreshes into one.
package auth
