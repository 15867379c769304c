// Package httputil holds the JSON response helpers and middleware shared by the HTTP
// surface.
//
// Errors are always JSON objects of the form {"error": "..."}. Server-side failures are
// reported with WriteInternalError, which never exposes the cause.
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.RecoveryMiddleware(logger),
//		httputil.CORSMiddleware([]string{"*"}),
//	)(router)
package httputil
