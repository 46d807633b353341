// Package feed assembles a user's home timeline by fan-out-on-read:
// each followed author's timeline is pulled (from a short-lived cache
// or the remote source), merged into one deterministically ordered
// candidate set, and paginated with an opaque cursor.
//
// Load shedding: pagination depth maps to a degradation level that
// narrows the fan-out candidate set, and a kill switch can force the
// most restrictive set regardless of depth. See the policy package.
package feed
