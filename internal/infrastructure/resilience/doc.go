// Package resilience isolates components that keep failing.
//
// A Breaker counts consecutive failures of one component. Once the
// threshold is reached it opens and calls are refused for the cool-down.
// After the cool-down a single trial call is let through: success closes
// the breaker, failure opens it again.
//
//	Closed --[threshold failures]--> Open --[cool-down]--> HalfOpen
//	HalfOpen --[success]--> Closed
//	HalfOpen --[failure]--> Open
package resilience
