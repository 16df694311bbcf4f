// Package harness runs enrichment scenarios described in YAML.
//
// A scenario carries its reference tables inline as CSV, the entities to
// enrich, the enrichers to request, and assertions on the result:
//
//	name: cooldown_talent
//	description: "A talent shortens the cooldown only when known"
//	enrichers: [cooldown]
//	tables:
//	  SpellCooldowns: |
//	    ID,SpellID,RecoveryTime,CategoryRecoveryTime,StartRecoveryTime
//	    1,200,10000,0,0
//	entities:
//	  - {id: 200, type: baseline}
//	  - {id: 300, type: talent}
//	assertions:
//	  - type: field_equals
//	    entity: 200
//	    field: cooldown
//	    expect: {duration: 10000}
//	  - type: applied
//	    entity: 200
//	    field: cooldown
//	    known: [300]
//	    expect: {duration: 9000}
//
// Tables the plan needs but the scenario omits are served header-only, so a
// scenario lists only the rows it cares about. A scenario that expects the
// run to fail names the error code in expect_error.
//
// Runs are deterministic: a fixed run id, in-memory tables and canonical
// JSON output, so golden snapshots compare byte for byte.
package harness
