/*
Package heatmap answers chunk-level activity queries over the canvas.

The viewport is divided into fixed-size square chunks; a query names the
chunks it can see and gets back the live cell count for each one that has
at least one cell. Chunk lists arrive in the wire form "gridX,gridY;..."
and are parsed fail-closed: one malformed entry rejects the whole list.
Store failures degrade to an empty snapshot instead of an error, so the
canvas keeps rendering without heat overlays.
*/
package heatmap
