// Package rate provides the Redis-backed fixed-window counters that throttle
// failed logins and refresh calls.
//
// # Window semantics
//
// Fixed-window counters: INCR + EXPIRE on the first hit. Keys, under the
// configured prefix:
//   - <prefix>:login:u:<username>  failed logins per username
//   - <prefix>:login:ip:<ip>       failed logins per client IP
//   - <prefix>:refresh:<user_id>   refresh calls per user
package rate
