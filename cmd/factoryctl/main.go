package main

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/issuance-factory/api/clients"
	"github.com/ruteri/issuance-factory/cmd/flags"
	"github.com/ruteri/issuance-factory/factory"
	"github.com/ruteri/issuance-factory/interfaces"
)

var flagParams = &cli.StringFlag{
	Name:     "params",
	Required: true,
	Usage:    "YAML file with the initialization parameters",
}

var flagSender = &cli.StringFlag{
	Name:     "sender",
	Required: true,
	Usage:    "payer address, receives the item",
}

var flagAmount = &cli.StringFlag{
	Name:     "amount",
	Required: true,
	Usage:    "paid amount in base units",
}

var flagMedium = &cli.StringFlag{
	Name:     "medium",
	Required: true,
	Usage:    "address of the payment medium the funds arrived through",
}

var flagToken = &cli.Uint64Flag{
	Name:  "token",
	Value: factory.RegistryCreationToken,
	Usage: "correlation token of the completed request",
}

var flagRegistry = &cli.StringFlag{
	Name:  "registry",
	Usage: "address of the created registry",
}

var flagCreationError = &cli.StringFlag{
	Name:  "error",
	Usage: "report a failed creation with this reason instead of a registry address",
}

func main() {
	app := &cli.App{
		Name:  "factoryctl",
		Usage: "Talk to an issuance factory",
		Flags: []cli.Flag{flags.ServerAddrFlag},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "initialize the factory and request its registry",
				Flags: []cli.Flag{flagParams},
				Action: func(cCtx *cli.Context) error {
					params, err := loadInitParams(cCtx.String(flagParams.Name))
					if err != nil {
						return err
					}
					request, err := newClient(cCtx).Initialize(cCtx.Context, params)
					if err != nil {
						return err
					}
					return printJSON(request)
				},
			},
			{
				Name:  "pay",
				Usage: "deliver a payment notification",
				Flags: []cli.Flag{flagSender, flagAmount, flagMedium},
				Action: func(cCtx *cli.Context) error {
					sender, err := interfaces.NewAddressFromHex(cCtx.String(flagSender.Name))
					if err != nil {
						return fmt.Errorf("sender: %w", err)
					}
					medium, err := interfaces.NewAddressFromHex(cCtx.String(flagMedium.Name))
					if err != nil {
						return fmt.Errorf("medium: %w", err)
					}
					amount, err := interfaces.ParseAmount(cCtx.String(flagAmount.Name))
					if err != nil {
						return err
					}

					command, err := newClient(cCtx).AcceptPayment(cCtx.Context, interfaces.PaymentNotification{
						Sender: sender,
						Amount: amount,
						Medium: medium,
					})
					if err != nil {
						return err
					}
					return printJSON(command)
				},
			},
			{
				Name:  "complete",
				Usage: "report the result of the registry creation",
				Flags: []cli.Flag{flagToken, flagRegistry, flagCreationError},
				Action: func(cCtx *cli.Context) error {
					result, err := creationResult(cCtx.String(flagRegistry.Name), cCtx.String(flagCreationError.Name))
					if err != nil {
						return err
					}

					addr, err := newClient(cCtx).HandleDeferredCompletion(cCtx.Context, interfaces.CompletionNotification{
						CorrelationToken: cCtx.Uint64(flagToken.Name),
						Result:           result,
					})
					if err != nil {
						return err
					}
					fmt.Println(addr.String())
					return nil
				},
			},
			{
				Name:  "config",
				Usage: "print the factory configuration",
				Action: func(cCtx *cli.Context) error {
					cfg, err := newClient(cCtx).ReadConfiguration(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(cfg)
				},
			},
			{
				Name:  "info",
				Usage: "print the implementation name and version",
				Action: func(cCtx *cli.Context) error {
					info, err := newClient(cCtx).ReadContractInfo(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(info)
				},
			},
			{
				Name:      "encode-result",
				Usage:     "print the creation result payload for a registry address",
				ArgsUsage: "<registry-address>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "base64", Usage: "print base64 as used in JSON instead of hex"},
				},
				Action: func(cCtx *cli.Context) error {
					addr, err := interfaces.NewAddressFromHex(cCtx.Args().First())
					if err != nil {
						return err
					}
					payload := factory.EncodeCreationResult(addr, nil)
					if cCtx.Bool("base64") {
						fmt.Println(base64.StdEncoding.EncodeToString(payload))
					} else {
						fmt.Println(hex.EncodeToString(payload))
					}
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) *clients.FactoryClient {
	return clients.NewFactoryClient(cCtx.String(flags.ServerAddrFlag.Name))
}

func creationResult(registry, reason string) (interfaces.CreationResult, error) {
	switch {
	case reason != "" && registry != "":
		return interfaces.CreationResult{}, errors.New("--registry and --error are mutually exclusive")
	case reason != "":
		return interfaces.CreationResult{Error: reason}, nil
	case registry == "":
		return interfaces.CreationResult{}, errors.New("one of --registry or --error is required")
	}

	addr, err := interfaces.NewAddressFromHex(registry)
	if err != nil {
		return interfaces.CreationResult{}, fmt.Errorf("registry: %w", err)
	}
	return interfaces.CreationResult{Data: factory.EncodeCreationResult(addr, nil)}, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
