package entity

import "errors"

var (
	// ErrInvalidURL is returned when the destination is not an absolute URL with a scheme and a host.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidShortCode is returned when a custom short code is not 3-10 alphanumeric characters.
	ErrInvalidShortCode = errors.New("invalid short code")
	// ErrInvalidValidityPeriod is returned when the validity window is outside 1-10080 minutes.
	ErrInvalidValidityPeriod = errors.New("invalid validity period")
	// ErrQuotaExceeded is returned when the maximum number of active URLs is already reached.
	ErrQuotaExceeded = errors.New("active url quota exceeded")
	// ErrCodeInUse is returned when a custom short code is already taken, expired or not.
	ErrCodeInUse = errors.New("short code in use")
	// ErrCodeSpaceExhausted is returned when no free short code was found within the retry budget.
	ErrCodeSpaceExhausted = errors.New("short code space exhausted")
	// ErrURLNotFound is returned when no URL matches the short code or id.
	ErrURLNotFound = errors.New("url not found")
	// ErrURLExpired is returned when the URL exists but is past its expiry.
	ErrURLExpired = errors.New("url expired")

	// ErrShortCodeExists is returned by stores when inserting a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrStorageUnavailable is returned by stores when the backing medium cannot serve the request.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
