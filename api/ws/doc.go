/*
Package ws is the realtime fan-out layer of the canvas.

A Hub tracks the attached websocket clients and pushes events to all of
them: cell updates and deletes (it implements resolver.Notifier), presence
counts, and live statistics. Inbound frames are restricted to the editing
presence pair, which is relayed verbatim to the other clients; state
changes only ever enter through the HTTP write path.

Each event is serialized once per broadcast. The channel always speaks
JSON, matching the browser clients on the other end. A client whose write
fails is skipped rather than evicted, since its own read pump will notice
the dead socket and run the disconnect path.
*/
package ws
