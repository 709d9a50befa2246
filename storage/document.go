package storage

import (
	"encoding/json"
	"fmt"

	"github.com/ruteri/issuance-factory/interfaces"
)

// stateDocumentName is the object name used by backends that keep the whole
// state in a single document. Replacing one document keeps commits atomic on
// stores that only offer single-object writes.
const stateDocumentName = "state.json"

// stateDocument is the on-disk form of the whole state. Values are base64
// encoded by encoding/json.
type stateDocument struct {
	Values map[string][]byte `json:"values"`
}

func decodeStateDocument(data []byte) (map[string][]byte, error) {
	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode state document: %w", err)
	}
	if doc.Values == nil {
		doc.Values = make(map[string][]byte)
	}
	return doc.Values, nil
}

func encodeStateDocument(values map[string][]byte) ([]byte, error) {
	data, err := json.Marshal(stateDocument{Values: values})
	if err != nil {
		return nil, fmt.Errorf("encode state document: %w", err)
	}
	return data, nil
}

// lookup returns the value of key in a decoded document.
func lookup(values map[string][]byte, key string) ([]byte, error) {
	value, ok := values[key]
	if !ok {
		return nil, interfaces.ErrStateNotFound
	}
	return value, nil
}
