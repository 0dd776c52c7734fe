// Package sanitizer normalizes free-form booking input before validation and
// storage.
//
// All functions are idempotent and never fail: input that cannot be normalized
// is returned trimmed, or empty when nothing usable remains.
//
// Normalization includes:
//   - Strings: collapse whitespace, trim leading/trailing spaces
//   - Codes: flight numbers and currencies upper-cased with inner spaces removed
//   - Emails: trimmed and lower-cased
//   - Phone numbers: E.164 when the number parses for a supported region
//   - Passenger names: a full name split into first and last name
package sanitizer
