// Package wire implements a byte-exact DNS message codec for the subset of
// record types used by multicast DNS and DNS-based service discovery: PTR,
// SRV, TXT, A, AAAA, and NSEC.
//
// The codec purposefully does not delegate to a general-purpose DNS library:
// name compression, the pointer-chase cap, and the class-field bit overloads
// described by RFC 6762 are the subject matter this package exists to get
// right, not a concern to be satisfied by an import.
package wire

import "errors"

// ErrMalformedName is returned when a domain name cannot be decoded: an
// over-long label, a compression pointer into unparsed or later data, a
// pointer chain that is too long, or a name with no terminating root label.
var ErrMalformedName = errors.New("wire: malformed dns name")

// ErrMalformedMessage is returned when a DNS message cannot be decoded: a
// truncated header, a section that runs past the end of the datagram, or an
// RR whose declared RDATA length does not fit.
var ErrMalformedMessage = errors.New("wire: malformed dns message")
