// Package team implements roster intake: participants submit up to four
// heroes, the roster is normalized, checked by an engine.Validator and kept
// per participant until a room activates and reads it.
//
// Storage is last-write-wins and lives as long as the process. A rejected
// submission never touches what is already stored.
package team
