// Package wire holds the JSON shapes exchanged with clients: the
// {event, data} envelope used on websocket frames and the grouped entity view
// of a board snapshot. Tile coordinates travel as x*10+y integers; see
// engine.EncodeTile.
package wire
