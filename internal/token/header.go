package token

const (
	HeaderType      = "typ"
	HeaderID        = "jti"
	HeaderKeyID     = "kid"
	HeaderAlgorithm = "alg"

	TypeJWT = "jwt"
)

// Header is the token metadata identifying the token, its key and algorithm.
type Header map[string]string

func NewHeader() Header {
	return Header{HeaderType: TypeJWT}
}

func (h Header) Type() string {
	return h[HeaderType]
}

func (h Header) ID() string {
	return h[HeaderID]
}

func (h Header) SetID(v string) {
	h.set(HeaderID, v)
}

func (h Header) KeyID() string {
	return h[HeaderKeyID]
}

func (h Header) SetKeyID(v string) {
	h.set(HeaderKeyID, v)
}

func (h Header) Algorithm() string {
	return h[HeaderAlgorithm]
}

func (h Header) SetAlgorithm(v string) {
	h.set(HeaderAlgorithm, v)
}

func (h Header) set(name, value string) {
	if value == "" {
		delete(h, name)
		return
	}
	h[name] = value
}

func (h Header) compact() Header {
	rv := make(Header, len(h))
	for k, v := range h {
		if v != "" {
			rv[k] = v
		}
	}
	return rv
}
