package key

import (
	"slices"
	"time"
)

// Ring resolves signing and verification keys from an ordered, fixed set of
// definitions. A Ring is never modified after NewRing; build a new one to
// change the configured keys.
type Ring struct {
	defs    []Definition
	builtAt time.Time
}

func NewRing(defs ...Definition) *Ring {
	return &Ring{
		defs:    slices.Clone(defs),
		builtAt: time.Now(),
	}
}

func (r *Ring) Definitions() []Definition {
	return slices.Clone(r.defs)
}

// UpdatedAt is the time the ring was built.
func (r *Ring) UpdatedAt() time.Time {
	return r.builtAt
}

// SigningKey returns the first key registered for signing.
func (r *Ring) SigningKey() (SigningKey, error) {
	for _, def := range r.defs {
		if def.Mode == ModeSignAndVerify {
			return def.Key, nil
		}
	}
	return nil, ErrNoSigningKey
}

// SigningKeyByName returns the first signing key registered under name.
func (r *Ring) SigningKeyByName(name string) (SigningKey, error) {
	for _, def := range r.defs {
		if def.Mode == ModeSignAndVerify && def.Name == name {
			return def.Key, nil
		}
	}
	return nil, &NotFoundError{Name: name}
}

// VerificationKey returns every key of the given family and hash, whatever
// its name or mode, as a single Aggregate.
func (r *Ring) VerificationKey(alg Algorithm, hash HashAlgorithm) VerificationKey {
	var keys Aggregate
	for _, def := range r.defs {
		if def.Key.Algorithm() == alg && def.Key.HashAlgorithm() == hash {
			keys = append(keys, def.Key)
		}
	}
	return keys
}

// VerificationKeyByID returns the first key with the given id. A miss is
// expected; callers fall back to VerificationKey.
func (r *Ring) VerificationKeyByID(id string) (VerificationKey, bool) {
	for _, def := range r.defs {
		if def.Key.ID() == id {
			return def.Key, true
		}
	}
	return nil, false
}

// PublicKeys lists the publishable keys in registration order.
func (r *Ring) PublicKeys() []PublicKey {
	seen := make(map[string]struct{}, len(r.defs))
	rv := make([]PublicKey, 0, len(r.defs))
	for _, def := range r.defs {
		exporter, ok := def.Key.(PublicKeyExporter)
		if !ok {
			continue
		}
		id := def.Key.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		rv = append(rv, PublicKey{
			KeyID: id,
			Key:   exporter.PublicKeyDER(),
		})
	}
	return rv
}
