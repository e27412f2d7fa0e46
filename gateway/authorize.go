package gateway

import (
	"net/http"

	"golang.org/x/oauth2"
)

// Authorize returns req carrying "Authorization: Bearer <access>". With an
// empty access token req is returned as is. req itself is never modified.
func Authorize(req *http.Request, access string) *http.Request {
	if access == "" {
		return req
	}
	authorized := req.Clone(req.Context())
	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	tok.SetAuthHeader(authorized)
	return authorized
}
