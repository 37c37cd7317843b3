package persistence

import "context"

// Key addresses one collection in the record store.
type Key string

// Fixed collection keys. Values are JSON documents; every collection except
// KeyUser holds a JSON array.
const (
	KeyUser          Key = "@shikkhajar_user"
	KeySegments      Key = "@shikkhajar_segments"
	KeyAttendance    Key = "@shikkhajar_attendance"
	KeyPayments      Key = "@shikkhajar_payments"
	KeySessions      Key = "@shikkhajar_sessions"
	KeyNotifications Key = "@shikkhajar_notifications"
	KeyPendingSync   Key = "@shikkhajar_pending_sync"
	KeyExamResults   Key = "@shikkhajar_exam_results"
	KeyReferrals     Key = "@shikkhajar_referrals"
)

// AllKeys lists every collection key owned by the local user.
func AllKeys() []Key {
	return []Key{
		KeyUser,
		KeySegments,
		KeyAttendance,
		KeyPayments,
		KeySessions,
		KeyNotifications,
		KeyPendingSync,
		KeyExamResults,
		KeyReferrals,
	}
}

// Store is the durable key-value port the ledger is written against.
//
// Get returns ErrNotFound when the key has never been written. SetMany
// writes all entries atomically: either every entry is stored or none is.
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	SetMany(ctx context.Context, entries map[Key][]byte) error
	Delete(ctx context.Context, keys ...Key) error
}
