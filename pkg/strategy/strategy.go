// Package strategy orders the candidate gateways of a send.
package strategy

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	mrand "math/rand/v2"

	"github.com/kart-io/easysms/pkg/config"
)

// Strategy returns gateway names in the order they should be attempted.
// Implementations are stateless and must return a permutation of the input
// names; they never look at the message or recipient.
type Strategy interface {
	Apply(gateways *config.Gateways) []string
}

// Func adapts a plain function to Strategy
type Func func(gateways *config.Gateways) []string

// Apply calls f
func (f Func) Apply(gateways *config.Gateways) []string {
	return f(gateways)
}

// Order keeps the declared gateway order.
type Order struct{}

// Apply returns the names in declaration order
func (Order) Apply(gateways *config.Gateways) []string {
	return gateways.Names()
}

// Random shuffles the gateways with crypto/rand. When the system random
// source fails it falls back to math/rand and reports it through Degraded.
type Random struct {
	// Reader is the random source; nil means crypto/rand.Reader.
	Reader io.Reader
	// Degraded, when set, is called each time the fallback source is used.
	Degraded func(err error)
}

// Apply returns a uniformly random permutation of the names
func (r Random) Apply(gateways *config.Gateways) []string {
	names := gateways.Names()
	source := &cryptoSource{reader: r.Reader}
	if source.reader == nil {
		source.reader = rand.Reader
	}

	mrand.New(source).Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})

	if source.err != nil && r.Degraded != nil {
		r.Degraded(source.err)
	}
	return names
}

// cryptoSource is a math/rand/v2 Source backed by reader. After the first
// read failure it draws from the math/rand global source instead.
type cryptoSource struct {
	reader io.Reader
	err    error
}

func (s *cryptoSource) Uint64() uint64 {
	if s.err == nil {
		var buf [8]byte
		_, err := io.ReadFull(s.reader, buf[:])
		if err == nil {
			return binary.LittleEndian.Uint64(buf[:])
		}
		s.err = err
	}
	return mrand.Uint64()
}
