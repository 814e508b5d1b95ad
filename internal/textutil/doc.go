// Package textutil provides the character-level text transforms shared by
// naming and identity derivation.
//
// Clean reduces arbitrary metadata text to a filesystem-safe form through a
// fixed substitution table, and Squish trims the trailing separators that
// unfilled naming templates leave behind. Both transforms are deterministic;
// history identities derived from cleaned text depend on that.
package textutil
