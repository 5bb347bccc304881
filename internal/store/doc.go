// Package store persists delivered messages in SQLite.
//
// The Store is the daemon's downstream consumer: it implements
// inbound.Consumer and writes each accepted message as one row in the
// messages table. Because a failed Accept withholds the broker
// acknowledgement, messages survive transient store failures through the
// protocol's redelivery semantics.
//
// SQLite runs with WAL mode and a busy timeout (configurable), a single
// writer connection, and the schema bootstrapped on open.
package store
