// Package identity implements the persistence side of DID linking.
//
// It owns the two durable records of the system: the singleton shared secret
// bootstrapped between the server and the client-side identity script, and the
// DID -> account links. Store implementations push all concurrency control into
// the database (insert-if-absent, upsert-by-unique-key) so several server
// processes may share one store.
package identity
