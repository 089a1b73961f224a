// Package dynamo provides the core types shared by every layer of the kernel.
//
// The package defines the value types that cross package boundaries:
//
//   - [World]: state of a single point mass (time, height, vertical velocity)
//   - [Handle]: opaque identifier for a live world; [NoHandle] is reserved
//   - [Status]: stable numeric outcome of a boundary call
//   - [Error]: Go error carrying a [Status] and a human-readable message
//
// # Status Codes
//
// Status values are part of the external C contract and never change:
//
//	OK=0  INVALID_ARGUMENT=1  INVALID_HANDLE=2  POLICY_DENIED=3  INTERNAL_ERROR=4
//
// Layers above the boundary convert statuses to errors with [NewError] and
// match them with errors.Is against the sentinel errors in this package.
package dynamo
