// Package canon produces canonical JSON and domain-separated content hashes.
//
// Canonical output follows RFC 8785 key ordering (UTF-16 code units), emits
// strings NFC-normalized without HTML escaping, and keeps numbers in the
// shortest form encoding/json produces. Identical values always serialize to
// identical bytes, which is what plan fingerprints and run snapshots rely on.
package canon
