// Package calling turns the free-text role line printed under a speaker's
// name into a canonical calling, the organization it belongs to, and the
// precedence ranks used to order both.
//
// Classification is table driven. Rules are evaluated top-down and the first
// match wins; Rules exposes the table so it can be inspected directly. Lower
// ranks are more senior. The values are relative and only their ordering is
// meaningful.
package calling
