// Package httputil provides shared HTTP plumbing for remote API clients:
// retry with backoff for transient failures and admission-control limiters
// that bound in-flight requests per quota regime.
package httputil
