// Package models defines the core domain models for tabsplit.
//
// # Models
//
//   - Group: one bill-splitting session at a single place with a fixed participant list
//   - LineItem: a purchased item, its quantity-inclusive value and who shared it
//   - TipSpec: an optional gratuity applied at allocation time (never persisted)
//   - PersonAllocation: the computed amount one participant owes, with its breakdown
//
// Participants are opaque labels ("P1".."Pn") generated when a group is created.
// Callers display and select participants by these exact labels.
//
// # Ownership
//
// The Group Store owns the durable Group record. The allocation engine borrows a
// read-only view of a Group for one computation and never mutates it.
// PersonAllocation values are projections of a Group and are never stored.
package models
