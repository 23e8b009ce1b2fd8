// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL with an expiry
// window and a click counter, the Clock abstraction and the error taxonomy
// shared by every layer.
package entity

import "time"

const (
	// MinValidityMinutes is the shortest validity window a URL may be created with.
	MinValidityMinutes = 1
	// MaxValidityMinutes is the longest validity window a URL may be created with (one week).
	MaxValidityMinutes = 10080
)

// URL represents a shortened URL.
//
// Everything except ClickCount is fixed at creation time. Expiry is never
// stored as a flag: it is derived from ExpiresAt on every read.
type URL struct {
	ID              string    // ID is the opaque unique identifier of the record.
	OriginalURL     string    // OriginalURL is the absolute URL the short code resolves to.
	ShortCode       string    // ShortCode is the alias used to build the short URL.
	ValidityMinutes int       // ValidityMinutes is the length of the validity window.
	CreatedAt       time.Time // CreatedAt is the timestamp when the URL was created.
	ExpiresAt       time.Time // ExpiresAt is CreatedAt + ValidityMinutes.
	ClickCount      int64     // ClickCount is the number of successful resolutions.
}

// IsExpired reports whether the URL is past its expiry at the given time.
// A URL is still active at exactly ExpiresAt.
func (u *URL) IsExpired(now time.Time) bool {
	return now.After(u.ExpiresAt)
}

// Clone returns a copy of the URL that shares no state with the receiver.
func (u *URL) Clone() *URL {
	c := *u
	return &c
}

// ExpiresAfter computes the expiry timestamp for a URL created at createdAt.
func ExpiresAfter(createdAt time.Time, validityMinutes int) time.Time {
	return createdAt.Add(time.Duration(validityMinutes) * time.Minute)
}
