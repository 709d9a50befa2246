package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ruteri/issuance-factory/interfaces"
)

// ErrNoTransactOpts is returned when a transaction is attempted without first setting transaction options.
var ErrNoTransactOpts = errors.New("no authorized transactor available")

// RegistryHostABI is the interface of the contract that creates registries
// and mints items on behalf of the factory.
const RegistryHostABI = `[
	{"type":"function","name":"createRegistry","stateMutability":"nonpayable","inputs":[
		{"name":"templateId","type":"uint64"},
		{"name":"initPayload","type":"bytes"},
		{"name":"correlationToken","type":"uint64"},
		{"name":"label","type":"string"}
	],"outputs":[]},
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[
		{"name":"registry","type":"address"},
		{"name":"tokenId","type":"string"},
		{"name":"owner","type":"address"},
		{"name":"tokenUri","type":"string"},
		{"name":"extension","type":"bytes"}
	],"outputs":[]}
]`

// OnchainDispatcher turns messages into transactions against a registry host
// contract. Transactions are sent but not awaited; the completion of a
// registry creation arrives separately.
type OnchainDispatcher struct {
	contract *bind.BoundContract
	address  common.Address
	auth     *bind.TransactOpts
	log      *slog.Logger
}

// NewOnchainDispatcher binds the registry host contract at address.
func NewOnchainDispatcher(client bind.ContractBackend, address common.Address, log *slog.Logger) (*OnchainDispatcher, error) {
	parsed, err := abi.JSON(strings.NewReader(RegistryHostABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry host abi: %w", err)
	}

	return &OnchainDispatcher{
		contract: bind.NewBoundContract(address, parsed, client, client, client),
		address:  address,
		log:      log,
	}, nil
}

// SetTransactOpts sets the transaction options required to send transactions.
// This must be called before Dispatch.
func (d *OnchainDispatcher) SetTransactOpts(auth *bind.TransactOpts) {
	d.auth = auth
}

func (d *OnchainDispatcher) Name() string {
	return "onchain-" + d.address.Hex()
}

func (d *OnchainDispatcher) Dispatch(ctx context.Context, msg interfaces.Message) error {
	if d.auth == nil {
		return ErrNoTransactOpts
	}

	method, args, err := transactionArgs(msg)
	if err != nil {
		return err
	}

	opts := *d.auth
	opts.Context = ctx

	tx, err := d.contract.Transact(&opts, method, args...)
	if err != nil {
		return fmt.Errorf("send %s transaction: %w", method, err)
	}

	d.log.Info("Transaction sent", "method", method, "tx", tx.Hash().Hex(), "nonce", tx.Nonce())
	return nil
}

// transactionArgs maps a message to a contract method and its arguments.
func transactionArgs(msg interfaces.Message) (string, []any, error) {
	switch msg.Kind {
	case interfaces.CreateRegistryMessage:
		if msg.CreateRegistry == nil {
			return "", nil, fmt.Errorf("%s message without payload", msg.Kind)
		}
		r := msg.CreateRegistry
		return "createRegistry", []any{r.TemplateID, []byte(r.InitPayload), r.CorrelationToken, r.Label}, nil
	case interfaces.CreateItemMessage:
		if msg.CreateItem == nil {
			return "", nil, fmt.Errorf("%s message without payload", msg.Kind)
		}
		c := msg.CreateItem
		return "mint", []any{c.Registry.Common(), c.ItemID, c.Recipient.Common(), c.ItemURI, []byte(c.Extension)}, nil
	default:
		return "", nil, fmt.Errorf("unsupported message kind %q", msg.Kind)
	}
}
