// Package catalog implements the book catalog: validated create/read/
// update/delete over book records with ISBN uniqueness.
//
// # Uniqueness
//
// ISBN uniqueness is enforced on the raw stored string, exactly as written
// by the client; stripping hyphens and spaces happens only for the
// character-class validation. The service pre-checks for duplicates to give
// friendly errors, but the store's unique constraint is the authoritative
// guard: two concurrent creates with the same ISBN resolve to exactly one
// winner, and the loser sees ErrDuplicateISBN.
//
// # Partial updates
//
// Update applies PATCH semantics even though the transport verb is PUT:
// only fields present in the payload change, everything else keeps its
// current value.
package catalog
