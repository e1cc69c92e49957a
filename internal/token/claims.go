package token

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

const (
	ClaimIssuer    = "iss"
	ClaimAudience  = "aud"
	ClaimSubject   = "sub"
	ClaimExpiry    = "exp"
	ClaimNotBefore = "nbf"
	ClaimIssuedAt  = "iat"
)

// Claims is the token payload. Reserved claims have typed accessors;
// setting one to its zero value removes it.
type Claims map[string]any

func (c Claims) Issuer() string {
	return c.stringClaim(ClaimIssuer)
}

func (c Claims) SetIssuer(v string) {
	c.setString(ClaimIssuer, v)
}

func (c Claims) Audience() string {
	return c.stringClaim(ClaimAudience)
}

func (c Claims) SetAudience(v string) {
	c.setString(ClaimAudience, v)
}

func (c Claims) Subject() string {
	return c.stringClaim(ClaimSubject)
}

func (c Claims) SetSubject(v string) {
	c.setString(ClaimSubject, v)
}

// Expiry returns the exp claim. A missing or malformed value reports false.
func (c Claims) Expiry() (time.Time, bool) {
	return c.timestamp(ClaimExpiry)
}

func (c Claims) SetExpiry(t time.Time) {
	c.setTimestamp(ClaimExpiry, t)
}

func (c Claims) NotBefore() (time.Time, bool) {
	return c.timestamp(ClaimNotBefore)
}

func (c Claims) SetNotBefore(t time.Time) {
	c.setTimestamp(ClaimNotBefore, t)
}

func (c Claims) IssuedAt() (time.Time, bool) {
	return c.timestamp(ClaimIssuedAt)
}

func (c Claims) SetIssuedAt(t time.Time) {
	c.setTimestamp(ClaimIssuedAt, t)
}

func (c Claims) stringClaim(name string) string {
	s, _ := c[name].(string)
	return s
}

func (c Claims) setString(name, value string) {
	if value == "" {
		delete(c, name)
		return
	}
	c[name] = value
}

func (c Claims) setTimestamp(name string, t time.Time) {
	if t.IsZero() {
		delete(c, name)
		return
	}
	c[name] = t.Unix()
}

func (c Claims) timestamp(name string) (time.Time, bool) {
	var seconds int64
	switch v := c[name].(type) {
	case int64:
		seconds = v
	case int:
		seconds = int64(v)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return time.Time{}, false
		}
		seconds = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return time.Time{}, false
		}
		seconds = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		seconds = n
	default:
		return time.Time{}, false
	}
	return time.Unix(seconds, 0).UTC(), true
}

// compact drops nil values before encoding.
func (c Claims) compact() Claims {
	rv := make(Claims, len(c))
	for k, v := range c {
		if v != nil {
			rv[k] = v
		}
	}
	return rv
}
