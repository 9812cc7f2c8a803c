// Package jwt issues and verifies the signed access and refresh tokens used by
// authgate. Tokens are HS256-signed and carry a class claim so an access token
// can never be presented where a refresh token is expected, or the reverse.
package jwt
