package types

// Principal is an opaque account identifier, typically an address.
type Principal string

// ZeroPrincipal is the void address. Minted tokens originate from it.
const ZeroPrincipal Principal = "0x0000000000000000000000000000000000000000"

// String implements fmt.Stringer.
func (p Principal) String() string { return string(p) }

// IsZero reports whether p is the void address or empty.
func (p Principal) IsZero() bool {
	return p == "" || p == ZeroPrincipal
}
