package signer

// PublicKeyed returns the public key of a provider. Repeated calls return
// the same key for the same underlying secret or device session.
type PublicKeyed interface {
	PublicKey() (PublicKey, error)
}

// Signer signs the exact bytes it is given. Any pre-hashing the algorithm
// needs is done by the implementation.
type Signer interface {
	Sign(msg []byte) (Signature, error)
}

// Provider is a signing backend: a software key, a hardware device or a
// remote service. Implementations are safe for concurrent use.
type Provider interface {
	PublicKeyed
	Signer
}
