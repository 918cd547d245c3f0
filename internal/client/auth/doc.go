// Package auth obtains Google OAuth 2.0 access tokens for the remote table.
//
// Interactive acquisition uses the device authorization grant: the provider
// asks the authorization server for a user code, hands the code and the
// verification URL to a Prompt callback, and polls until the user approves
// the request in a browser. The refresh token returned by that grant is kept
// in memory only, so a later non-interactive request within the same process
// can renew the access token without user interaction. A fresh process always
// needs an interactive grant once its stored access token has expired.
package auth
