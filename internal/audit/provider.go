package audit

import (
	"strconv"

	"github.com/glinharesb/vault-signer/internal/signer"
)

var _ signer.Provider = (*Provider)(nil)

// Provider records every call on the wrapped provider. It adds no locking of
// its own; ordering guarantees are those of the inner provider.
type Provider struct {
	name  string
	inner signer.Provider
	log   *Logger
}

func Wrap(name string, inner signer.Provider, log *Logger) *Provider {
	return &Provider{name: name, inner: inner, log: log}
}

func (p *Provider) PublicKey() (signer.PublicKey, error) {
	pk, err := p.inner.PublicKey()
	p.record("PublicKey", pk.Algorithm(), err, nil)
	return pk, err
}

func (p *Provider) Sign(msg []byte) (signer.Signature, error) {
	sig, err := p.inner.Sign(msg)
	p.record("Sign", sig.Algorithm(), err, map[string]string{
		"message_bytes": strconv.Itoa(len(msg)),
	})
	return sig, err
}

func (p *Provider) record(op string, alg signer.Algorithm, err error, md map[string]string) {
	status := "OK"
	if err != nil {
		status = "ERROR"
	} else {
		if md == nil {
			md = map[string]string{}
		}
		md["algorithm"] = alg.String()
	}
	p.log.Log(op, p.name, status, err, md)
}
