// Package catalog compiles CUE entity catalogs into entities.
//
// A catalog directory holds one CUE package. Entities live under the
// top-level "entity" struct, keyed by a handle; the optional "catalog"
// struct names the catalog and selects enrichers:
//
//	package mage
//
//	catalog: {
//		name:      "fire"
//		enrichers: ["gcd", "cooldown"]
//	}
//
//	entity: fireball: {id: 133, type: "baseline"}
//	entity: combustion: {id: 190319, type: "talent", requiresTalentEntry: [1]}
//	entity: hotStreak: {id: 48108, type: "temporary", grantedBy: 195283}
//
// Entities keep declaration order. Errors carry CUE source positions.
package catalog
