// Package auth provides authentication middleware for rangeshift serve.
//
// APIKey(mode, header, key) wraps an http.Handler and checks the named
// request header against key. When mode != "apikey" or key == "", every
// request passes through, which is what local development wants. A missing
// or wrong key is answered with 401 and a JSON error body.
package auth
