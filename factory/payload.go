package factory

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ruteri/issuance-factory/interfaces"
)

// Field numbers of the creation result message reported by the registry host:
//
//	message CreationResult {
//	  string registry_address = 1;
//	  bytes  data = 2;
//	}
const (
	resultAddressField protowire.Number = 1
	resultDataField    protowire.Number = 2
)

// EncodeCreationResult produces the completion payload for a registry created
// at addr. data is optional host-specific output.
func EncodeCreationResult(addr interfaces.Address, data []byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, resultAddressField, protowire.BytesType)
	b = protowire.AppendString(b, addr.String())
	if len(data) > 0 {
		b = protowire.AppendTag(b, resultDataField, protowire.BytesType)
		b = protowire.AppendBytes(b, data)
	}
	return b
}

// DecodeCreationResult extracts the registry address from a completion payload.
// Every malformed input yields an error wrapping ErrDecodeFailure.
func DecodeCreationResult(payload []byte) (interfaces.Address, error) {
	if len(payload) == 0 {
		return interfaces.Address{}, fmt.Errorf("%w: empty payload", ErrDecodeFailure)
	}

	var rawAddr string
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return interfaces.Address{}, fmt.Errorf("%w: %w", ErrDecodeFailure, protowire.ParseError(n))
		}
		payload = payload[n:]

		if num == resultAddressField {
			if typ != protowire.BytesType {
				return interfaces.Address{}, fmt.Errorf("%w: registry address has wire type %d", ErrDecodeFailure, typ)
			}
			v, n := protowire.ConsumeBytes(payload)
			if n < 0 {
				return interfaces.Address{}, fmt.Errorf("%w: %w", ErrDecodeFailure, protowire.ParseError(n))
			}
			rawAddr = string(v)
			payload = payload[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, payload)
		if n < 0 {
			return interfaces.Address{}, fmt.Errorf("%w: %w", ErrDecodeFailure, protowire.ParseError(n))
		}
		payload = payload[n:]
	}

	if rawAddr == "" {
		return interfaces.Address{}, fmt.Errorf("%w: registry address missing", ErrDecodeFailure)
	}

	addr, err := interfaces.NewAddressFromHex(rawAddr)
	if err != nil {
		return interfaces.Address{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	return addr, nil
}
