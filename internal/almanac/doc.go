// Package almanac reads the text format that describes a translation
// pipeline and turns it into rangemap values.
//
// Format:
//
//	seeds: 79 14 55 13
//
//	seed-to-soil map:
//	50 98 2
//	52 50 48
//
//	soil-to-fertilizer map:
//	0 15 37
//	...
//
// The first line lists seed values. Every later block starts with a
// non-numeric header ending in ':' and holds rows of exactly three numbers,
// dest source length. Blank lines are ignored. The header text before
// "map:" becomes the stage name.
//
// Seeds are interpreted according to a Mode: ModeRanges reads them as
// (start, length) pairs, ModeValues as individual values (intervals of
// length 1).
//
// Load and ReadFile transparently decompress files ending in ".xz".
package almanac
