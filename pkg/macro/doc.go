// Package macro expands compile-time counter macros in source text.
//
// Pipeline per invocation: scan source -> Lex argument list -> decode
// (name, optional int32) -> one counter.Store operation -> splice "(N)" or
// nothing back into the text.
//
// A Session owns the stores. StoreScope decides whether files share
// counters; counter.Policy decides whether a store is locked.
package macro
