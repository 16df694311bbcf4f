// Package enrichers holds the enrichment steps that derive ability data
// from client database tables.
//
// Leaf enrichers read one or two tables for the entity itself (passive,
// label, classMask, name, icon, castTime, castableWhileCasting). The
// effects enricher collects every effect row in the collection that
// targets an entity, by class mask or charge category, and the timing
// enrichers (gcd, charges, cooldown, channel) fold those effects into
// baseline values plus conditional modifiers.
//
// Attribute flags and magic numbers come from the client data format.
// They are named where they are used.
package enrichers
