// Package task runs background maintenance for the generation service. The
// Reconciler closes PENDING generations that were abandoned, for example by
// a crash between the provider call and the terminal update, so no record
// stays PENDING forever.
package task
