package srp

import "math/big"

// Message is implemented by the four exchange payloads. Sessions and
// drivers work on these decoded forms; encoding them for a transport is
// the caller's concern (pkg/protocol carries the JSON form).
type Message interface {
	message()
}

// ClientHello opens an exchange: the claimed username and the client's
// ephemeral public value A.
type ClientHello struct {
	Username string
	A        *big.Int
}

// ServerChallenge answers a hello with the user's salt and the server's
// ephemeral public value B.
type ServerChallenge struct {
	Salt []byte
	B    *big.Int
}

// ClientProof carries M1, the client's evidence of knowing the password.
type ClientProof struct {
	M1 []byte
}

// ServerConfirm carries M2, the server's evidence of knowing the verifier.
type ServerConfirm struct {
	M2 []byte
}

func (*ClientHello) message()     {}
func (*ServerChallenge) message() {}
func (*ClientProof) message()     {}
func (*ServerConfirm) message()   {}
