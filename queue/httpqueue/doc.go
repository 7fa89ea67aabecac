// Package httpqueue implements the HTTP queue protocol: a thin
// transport adapter that exposes one pipeteer.RawQueue over HTTP
// (Server) and consumes one that way (Client), for the distributed
// variant where a pipeline's input or output queue lives in a
// different process than the worker using it.
//
// Wire protocol, one HTTP server per queue:
//
//	POST   /write/{key}            body=JSON value   push
//	DELETE /read/item/{key}                          pop, 404 if absent
//	GET    /read/item/{key}?reserve=<sec>             read, 404 if absent
//	GET    /read/item?reserve=<sec>                   read-any, 200 [key,value] or null
//	GET    /read/keys                                list keys
//	DELETE /read/                                    clear
//
// Errors: a 404 body is {"key": "..."}; a 500 body is
// {"message": "..."}, matching pipeteer.NotFoundError / QueueError.
//
// A Client has no WaitAny loop of its own beyond what
// pipeteer.WaitAnyRaw already provides by retrying read-any; it does
// not implement the optional notification channel (see the notify
// package), since correctness must not depend on it.
package httpqueue
