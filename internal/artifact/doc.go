// Package artifact owns the compiled binary produced for a document state.
//
// A Handle pairs a binary reference (Blob) with the source content it was
// compiled from. The Manager keeps exactly one Handle current and releases
// every Handle it has taken ownership of exactly once: when a newer Handle
// replaces it, or when the Manager is closed.
//
// Viewers observe changes through Subscribe and must re-fetch Current on
// every notification; a Handle is not guaranteed to stay readable after the
// next Register.
package artifact
