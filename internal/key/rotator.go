package key

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// RotatedKeyName is the definition name given to generated keys.
const RotatedKeyName = "rotated"

const defaultRetain = 10

// Generator creates a fresh signing key for a rotation.
type Generator func() (SigningKey, error)

// RSAGenerator generates 2048-bit RSA keys.
func RSAGenerator(hash HashAlgorithm) Generator {
	return func() (SigningKey, error) {
		privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, fmt.Errorf("failed to generate private key: %w", err)
		}
		return NewRSAKey(privateKey, hash)
	}
}

// ECGenerator generates keys on the curve paired with hash.
func ECGenerator(hash HashAlgorithm) Generator {
	return func() (SigningKey, error) {
		var curve elliptic.Curve
		switch hash {
		case SHA256:
			curve = elliptic.P256()
		case SHA384:
			curve = elliptic.P384()
		case SHA512:
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedHash, hash)
		}
		privateKey, err := ecdsa.GenerateKey(curve, rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate private key: %w", err)
		}
		return NewECKey(privateKey, hash)
	}
}

type RotatorConfig struct {
	// Interval between rotations. Zero disables the background loop.
	Interval time.Duration
	// Retain is the number of generated keys kept for verification.
	Retain    int
	Generator Generator
}

// Rotator owns a Ring whose signing key is regenerated periodically. Each
// rotation builds a new Ring and swaps it in; readers keep using whichever
// Ring they loaded.
type Rotator struct {
	logger   *slog.Logger
	static   []Definition
	generate Generator
	retain   int

	ring atomic.Pointer[Ring]

	mu        sync.Mutex
	generated []SigningKey
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewRotator rotates once before returning. Static definitions are kept in
// every ring, after the active generated key.
func NewRotator(logger *slog.Logger, static []Definition, cfg RotatorConfig) (*Rotator, error) {
	r := &Rotator{
		logger:   logger,
		static:   slices.Clone(static),
		generate: cfg.Generator,
		retain:   cfg.Retain,
	}
	if r.generate == nil {
		r.generate = RSAGenerator(SHA256)
	}
	if r.retain <= 0 {
		r.retain = defaultRetain
	}
	if err := r.Rotate(); err != nil {
		return nil, fmt.Errorf("failed to rotate key: %w", err)
	}

	if cfg.Interval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		r.cancel = cancel
		r.done = make(chan struct{})
		go r.startRotationLoop(ctx, cfg.Interval)
	}

	return r, nil
}

func (r *Rotator) Close() error {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	return nil
}

func (r *Rotator) startRotationLoop(ctx context.Context, d time.Duration) {
	defer close(r.done)

	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("rotation loop stopped")
			return
		case <-ticker.C:
			r.logger.Info("rotating key")
			if err := r.Rotate(); err != nil {
				r.logger.Error("failed to rotate key", slog.Any("error", err))
			}
		}
	}
}

// Rotate generates a new signing key and publishes a rebuilt Ring.
func (r *Rotator) Rotate() error {
	newKey, err := r.generate()
	if err != nil {
		return err
	}
	r.logger.Info("generated new key", slog.String("key-id", newKey.ID()))

	r.mu.Lock()
	defer r.mu.Unlock()

	r.generated = append(r.generated, newKey)
	if len(r.generated) > r.retain {
		r.generated = r.generated[len(r.generated)-r.retain:]
	}

	defs := make([]Definition, 0, len(r.static)+len(r.generated))
	defs = append(defs, Definition{Name: RotatedKeyName, Key: newKey, Mode: ModeSignAndVerify})
	defs = append(defs, r.static...)
	for i := len(r.generated) - 2; i >= 0; i-- {
		defs = append(defs, Definition{Name: RotatedKeyName, Key: r.generated[i], Mode: ModeVerifyOnly})
	}
	r.ring.Store(NewRing(defs...))

	r.logger.Info("updated active key",
		slog.String("key-id", newKey.ID()),
		slog.Int("num-keys", len(r.generated)),
	)
	return nil
}

// Ring returns the current ring.
func (r *Rotator) Ring() *Ring {
	return r.ring.Load()
}

func (r *Rotator) SigningKey() (SigningKey, error) {
	return r.Ring().SigningKey()
}

func (r *Rotator) SigningKeyByName(name string) (SigningKey, error) {
	return r.Ring().SigningKeyByName(name)
}

func (r *Rotator) VerificationKey(alg Algorithm, hash HashAlgorithm) VerificationKey {
	return r.Ring().VerificationKey(alg, hash)
}

func (r *Rotator) VerificationKeyByID(id string) (VerificationKey, bool) {
	return r.Ring().VerificationKeyByID(id)
}

func (r *Rotator) PublicKeys() []PublicKey {
	return r.Ring().PublicKeys()
}

// UpdatedAt is the time of the last successful rotation.
func (r *Rotator) UpdatedAt() time.Time {
	return r.Ring().UpdatedAt()
}
