// Package middleware wraps the library's HTTP router.
//
// [Logger] writes one W3C Extended Log Format line per request, [Metrics]
// records Prometheus request metrics labelled by route template, and
// [Compress] gzips JSON, subtitle and page responses. Media streams are
// never compressed so byte ranges keep working.
package middleware
