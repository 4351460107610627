// Package prometheus exposes credguard metrics through client_golang.
//
// [Collector] reads Engine.MetricsSnapshot on every scrape; register it on a
// registry of your choice or mount [Handler], which uses a private one.
package prometheus
