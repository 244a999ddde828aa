// Package engine evaluates form modifiers.
//
// A pass builds a Context from the submitted values, orders the fields so
// that every modifier runs after the fields it reads (Schedule), evaluates
// the modifiers (Apply) and returns the resulting attribute Overlay together
// with the per-field errors that were recovered along the way. Compile
// performs the value-independent half once and returns a reusable Plan.
package engine
