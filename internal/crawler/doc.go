// Package crawler walks the sequential ad identifier space one probe per tick,
// adapting its step size to find the newest ads that have aged past the
// freshness window.
package crawler
