// Package dbc loads client database tables exported as CSV.
//
// A table is fetched once from a Source, parsed into a Raw header/record set
// and then indexed by one or more key columns. Store memoizes both steps so a
// table requested under several keys is only fetched and parsed once.
//
// Values are kept as strings; Row converts them on read. A missing or
// malformed numeric cell reads as zero, which matches how the exported
// tables encode "no value".
package dbc
