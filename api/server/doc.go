/*
Package server exposes the canvas over HTTP.

The write path runs every POST through the per-address rate limiter and the
version resolver; realtime fan-out happens inside the resolver's notifier,
so a successful write answers the caller and broadcasts in one pass. Read
endpoints cover viewport ranges, cell detail, the golden spawn point, the
heatmap, and statistics. Every JSON endpoint answers with a {code, message,
data} envelope whose code mirrors the HTTP status.

The /ws endpoint upgrades to the realtime protocol (see api/ws) and
/metrics exports Prometheus counters.
*/
package server
