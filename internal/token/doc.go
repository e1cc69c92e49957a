// Package token issues and verifies compact signed tokens of the form
// base64url(header).base64url(claims).base64url(signature).
//
// Keys are resolved through a KeyRing; verification outcomes are cached by
// raw token string so a repeated token is not verified twice. Verification
// checks structure and signature only. Time based claims such as exp and nbf
// are returned to the caller unchecked.
package token
