package dispatch

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/issuance-factory/interfaces"
)

var testHost = common.HexToAddress("0x00000000000000000000000000000000000000aa")

// setupTestChain creates a simulated chain with one funded account.
func setupTestChain(t *testing.T) (*simulated.Backend, *bind.TransactOpts) {
	privateKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, big.NewInt(1337))
	require.NoError(t, err)
	// The host address has no code, so gas cannot be estimated.
	auth.GasLimit = 500_000

	balance := new(big.Int)
	balance.SetString("10000000000000000000", 10) // 10 ETH

	backend := simulated.NewBackend(map[common.Address]types.Account{
		auth.From: {Balance: balance},
	}, simulated.WithBlockGasLimit(8_000_000))
	t.Cleanup(func() { _ = backend.Close() })

	return backend, auth
}

func TestOnchainDispatcher_NoTransactOpts(t *testing.T) {
	d, err := NewOnchainDispatcher(nil, testHost, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	err = d.Dispatch(context.Background(), createItemMessage(interfaces.Address{0x44}, "0"))
	assert.ErrorIs(t, err, ErrNoTransactOpts)
}

func TestOnchainDispatcher_Mint(t *testing.T) {
	backend, auth := setupTestChain(t)
	ctx := context.Background()

	d, err := NewOnchainDispatcher(backend.Client(), testHost, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	d.SetTransactOpts(auth)

	registry := interfaces.Address{0x44}
	require.NoError(t, d.Dispatch(ctx, createItemMessage(registry, "7")))
	backend.Commit()

	block, err := backend.Client().BlockByNumber(ctx, nil)
	require.NoError(t, err)
	require.Len(t, block.Transactions(), 1)

	tx := block.Transactions()[0]
	require.NotNil(t, tx.To())
	assert.Equal(t, testHost, *tx.To())

	parsed, err := abi.JSON(strings.NewReader(RegistryHostABI))
	require.NoError(t, err)
	method, err := parsed.MethodById(tx.Data()[:4])
	require.NoError(t, err)
	assert.Equal(t, "mint", method.Name)

	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	require.Len(t, args, 5)
	assert.Equal(t, registry.Common(), args[0])
	assert.Equal(t, "7", args[1])
	assert.Equal(t, testOwner.Common(), args[2])
	assert.Equal(t, "ipfs://item", args[3])
	assert.Equal(t, []byte("null"), args[4])
}

func TestTransactionArgs_CreateRegistry(t *testing.T) {
	msg := createRegistryMessage(t, interfaces.NotifyOnSuccess)

	method, args, err := transactionArgs(msg)
	require.NoError(t, err)
	assert.Equal(t, "createRegistry", method)

	parsed, err := abi.JSON(strings.NewReader(RegistryHostABI))
	require.NoError(t, err)

	packed, err := parsed.Pack(method, args...)
	require.NoError(t, err)

	unpacked, err := parsed.Methods[method].Inputs.Unpack(packed[4:])
	require.NoError(t, err)
	assert.Equal(t, uint64(3), unpacked[0])
	assert.Equal(t, []byte(msg.CreateRegistry.InitPayload), unpacked[1])
	assert.Equal(t, uint64(1), unpacked[2])
	assert.Equal(t, "test", unpacked[3])
}
