// Package manual compiles short English instructions into SQL statements
// using fixed keyword and phrase tables. Nothing here performs I/O; a
// sentence that cannot be compiled yields the Sentinel string so callers
// can fall back to another translator.
package manual
