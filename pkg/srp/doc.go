// Package srp implements the SRP-6a password-authenticated key exchange
// of RFC 2945 and RFC 5054: enrollment turns a password into a salted
// verifier, and the login exchange proves password knowledge mutually
// without ever sending the password, yielding a shared session key.
//
// ClientSession and ServerSession expose the protocol one message at a
// time; ClientDriver and ServerDriver wrap them with ordering and deadline
// enforcement for use behind a transport. Wire encoding is out of scope
// here; pkg/protocol carries the JSON form the daemon speaks.
package srp

//go:generate go tool mockgen -destination=mock_lookup.go -package=srp github.com/marspr/srp-web/pkg/srp Lookup
