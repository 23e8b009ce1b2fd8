// Package middleware holds HTTP middlewares shared by the API router.
package middleware

import "net/http"

type Middleware func(next http.Handler) http.Handler
