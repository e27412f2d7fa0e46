// Package gateway attaches bearer credentials to outbound API requests and
// recovers from expired access tokens.
//
// A Gateway sends each request with the stored access token. When the API
// answers 401 and a refresh token is stored, the request waits on the
// Coordinator, which lets exactly one refresh call run no matter how many
// requests fail at once and hands its outcome to every waiter in arrival
// order. The request is then replayed once with the new token; that second
// answer is final. A failed refresh clears the credential store and every
// waiter receives ErrSessionExpired.
//
// The refresh call itself is made by a Refresher (normally *api.Client) that
// has its own http.Client and never goes through a Gateway.
package gateway
