// Package turn mediates between participants and a running simulation.
//
// Every state change follows a preview-then-confirm protocol: a participant
// first asks for a preview (movement options, a combat forecast or an assist
// forecast) and only then may confirm an action with exactly the parameters
// the preview offered. Previews are recorded as gates stamped with the turn
// in which they were taken. A gate lapses when the turn passes or when its
// unit acts; other units acting in between leave it alone, and the engine
// still rejects a destination that has since become blocked.
//
// The Mediator also enforces turn ownership. Only the participant whose side
// is in play may move, attack or assist, and only with its own units. Ending
// a turn is allowed to either participant unless Options.StrictEndTurn is set.
//
// Errors reported by the simulation are mapped onto this package's sentinel
// errors. Anything unexpected, including a panic inside the simulation,
// surfaces as ErrEngineFault so that a broken engine never takes the room
// down with it.
package turn
