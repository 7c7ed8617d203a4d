// Package catalog resolves image references to the challenges they
// instantiate.
//
// References arrive from untrusted callers. [ValidateReference] restricts
// them to hexadecimal digits and the "sha256:" prefix before anything else
// touches them, so a malformed reference is rejected without any I/O.
package catalog
