// Package domain contains the core types of the 3-D Secure test harness:
// the transaction session aggregate, step state, merchant configuration,
// the append-only activity log, and the sentinel errors shared by all
// adapters. It has no dependencies outside the standard library so that
// every adapter can import it freely.
package domain
