package factory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ruteri/issuance-factory/interfaces"
)

// Well-known state keys.
const (
	ConfigKey       = "config"
	ContractInfoKey = "contract_info"
)

// Store reads and writes factory records as whole JSON documents.
type Store struct {
	backend interfaces.StateBackend
}

// NewStore creates a store on top of a state backend.
func NewStore(backend interfaces.StateBackend) *Store {
	return &Store{backend: backend}
}

// LoadConfig returns the config record or ErrNotInitialized.
func (s *Store) LoadConfig(ctx context.Context) (*interfaces.Config, error) {
	var cfg interfaces.Config
	if err := s.load(ctx, ConfigKey, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig overwrites the config record.
func (s *Store) SaveConfig(ctx context.Context, cfg *interfaces.Config) error {
	change, err := encodeChange(ConfigKey, cfg)
	if err != nil {
		return err
	}
	return s.backend.Commit(ctx, []interfaces.StateChange{change})
}

// LoadContractInfo returns the contract info record or ErrNotInitialized.
func (s *Store) LoadContractInfo(ctx context.Context) (*interfaces.ContractInfo, error) {
	var info interfaces.ContractInfo
	if err := s.load(ctx, ContractInfoKey, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SaveInitialState writes the config and contract info records in one commit.
func (s *Store) SaveInitialState(ctx context.Context, cfg *interfaces.Config, info *interfaces.ContractInfo) error {
	cfgChange, err := encodeChange(ConfigKey, cfg)
	if err != nil {
		return err
	}
	infoChange, err := encodeChange(ContractInfoKey, info)
	if err != nil {
		return err
	}
	return s.backend.Commit(ctx, []interfaces.StateChange{cfgChange, infoChange})
}

// Initialized reports whether a config record exists.
func (s *Store) Initialized(ctx context.Context) (bool, error) {
	_, err := s.backend.Fetch(ctx, ConfigKey)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, interfaces.ErrStateNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("fetch %s: %w", ConfigKey, err)
	}
}

func (s *Store) load(ctx context.Context, key string, v any) error {
	data, err := s.backend.Fetch(ctx, key)
	if errors.Is(err, interfaces.ErrStateNotFound) {
		return ErrNotInitialized
	}
	if err != nil {
		return fmt.Errorf("fetch %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func encodeChange(key string, v any) (interfaces.StateChange, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return interfaces.StateChange{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return interfaces.StateChange{Key: key, Value: data}, nil
}
