// Package interfaces defines the core interfaces and types for the issuance factory.
// It provides the contract between different components without implementation details.
package interfaces

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Address identifies an account or a resource: the factory owner, the payment
// medium, payers, and the linked item registry.
type Address [20]byte

// NewAddressFromBytes creates an address from its raw 20-byte form.
func NewAddressFromBytes(addr []byte) (Address, error) {
	if len(addr) != 20 {
		return Address{}, errors.New("invalid address length: must be 20 bytes")
	}

	var res Address
	copy(res[:], addr)
	return res, nil
}

// NewAddressFromHex parses a 40-character hex string, with or without 0x prefix.
func NewAddressFromHex(addr string) (Address, error) {
	clean := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if len(clean) != 40 {
		return Address{}, errors.New("invalid address length: hex string must be 40 characters")
	}

	addrBytes, err := hex.DecodeString(clean)
	if err != nil {
		return Address{}, fmt.Errorf("invalid hex format: %w", err)
	}

	return NewAddressFromBytes(addrBytes)
}

// String returns the lowercase hex representation without 0x prefix.
func (addr Address) String() string {
	return hex.EncodeToString(addr[:])
}

// Bytes returns the raw 20-byte address.
func (addr Address) Bytes() []byte {
	return addr[:]
}

// Equal compares two addresses for equality.
func (addr Address) Equal(other Address) bool {
	return addr == other
}

// IsZero reports whether the address is all zeroes.
func (addr Address) IsZero() bool {
	return addr == Address{}
}

// Common converts the address into its go-ethereum form.
func (addr Address) Common() common.Address {
	return common.Address(addr)
}

func (addr Address) MarshalText() ([]byte, error) {
	return []byte(addr.String()), nil
}

func (addr *Address) UnmarshalText(text []byte) error {
	parsed, err := NewAddressFromHex(string(text))
	if err != nil {
		return err
	}
	*addr = parsed
	return nil
}

// maxAmountBits bounds amounts to the uint128 range used by payment media.
const maxAmountBits = 128

// Amount is an unsigned 128-bit token quantity. On the wire it is a decimal string.
type Amount struct {
	v uint256.Int
}

// NewAmount creates an amount from a uint64.
func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// ParseAmount parses a base-10 amount.
func ParseAmount(s string) (Amount, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if v.BitLen() > maxAmountBits {
		return Amount{}, fmt.Errorf("invalid amount %q: exceeds 128 bits", s)
	}
	return Amount{v: *v}, nil
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Equal compares two amounts.
func (a Amount) Equal(other Amount) bool {
	return a.v.Eq(&other.v)
}

// String returns the decimal representation.
func (a Amount) String() string {
	return a.v.Dec()
}

// Big returns the amount as a big.Int, for contract calls.
func (a Amount) Big() *big.Int {
	return a.v.ToBig()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// RegistryLink records whether the factory has been linked to its item registry.
// The zero value is unlinked; a link is established once with LinkedTo.
type RegistryLink struct {
	address *Address
}

// Unlinked returns the state of a factory whose registry has not been created yet.
func Unlinked() RegistryLink {
	return RegistryLink{}
}

// LinkedTo returns the state of a factory linked to the registry at addr.
func LinkedTo(addr Address) RegistryLink {
	return RegistryLink{address: &addr}
}

// Address returns the linked registry address, and false while unlinked.
func (l RegistryLink) Address() (Address, bool) {
	if l.address == nil {
		return Address{}, false
	}
	return *l.address, true
}

// IsLinked reports whether the registry address has been recorded.
func (l RegistryLink) IsLinked() bool {
	return l.address != nil
}

// String returns the registry address or "unlinked".
func (l RegistryLink) String() string {
	if l.address == nil {
		return "unlinked"
	}
	return l.address.String()
}

func (l RegistryLink) MarshalJSON() ([]byte, error) {
	if l.address == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*l.address)
}

func (l *RegistryLink) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*l = Unlinked()
		return nil
	}
	var addr Address
	if err := json.Unmarshal(data, &addr); err != nil {
		return fmt.Errorf("invalid registry address: %w", err)
	}
	*l = LinkedTo(addr)
	return nil
}
