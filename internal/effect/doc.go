// Package effect models effects that one entity applies to another, and
// accumulates them into a baseline value plus conditional modifiers.
//
// An effect only applies while its source entity is known to the player.
// Baseline passive entities are always known, so their effects fold into
// the base value. Everything else becomes a Modifier tagged with the
// entities that must all be known for it to apply. ApplyModifiers resolves
// a Result against a concrete set of known entities later.
package effect
