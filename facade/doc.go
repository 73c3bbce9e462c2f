// Package facade wraps a snapshot.Snapshot behind a single-writer
// discipline: configuration changes and commits are serialized onto one
// background worker in FIFO order, each carrying its own cancellation
// token so a newly enqueued commit can short-circuit one still in
// flight. Reads never go through the queue: Current returns whatever
// snapshot is live right now, and snapshot reads are safe to call
// concurrently with an in-flight commit since a Snapshot never mutates
// itself in an observable way.
package facade
