// Package config resolves and validates eventchain configuration documents.
//
// A configuration document is a JSON object (or a `module.exports = {...}`
// object literal) carrying an "eventchain" marker, a "name", and a "q" query
// with "find" and optionally "project". Exactly one document must resolve
// from the chosen source:
//
//   - inline text passed on the command line
//   - an explicit file path
//   - a non-recursive scan of the working directory for *.json and *.js
//     files that carry the marker
//
// Validation collects every violation instead of stopping at the first one,
// so an operator can fix a config in one pass.
package config
