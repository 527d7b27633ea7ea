// Package device defines what the signing core consumes from a hardware
// transport. Framing and the wire protocol live behind these interfaces.
package device

//go:generate mockgen -package=devicemock -destination=devicemock/device.go -mock_names=Transport=Transport,Session=Session . Transport,Session

// Transport opens sessions with a physical signing device.
type Transport interface {
	// Connect opens a session with exactly one device instance.
	Connect() (Session, error)
}

// Session is a stateful channel to one device. It is not safe for
// concurrent use; callers serialize access.
type Session interface {
	// PublicKey returns the raw public key bytes held by the device.
	PublicKey() ([]byte, error)
	// Sign returns raw signature bytes over msg exactly as given.
	Sign(msg []byte) ([]byte, error)
}
