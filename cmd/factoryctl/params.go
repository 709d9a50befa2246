package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ruteri/issuance-factory/interfaces"
)

// initFile is the YAML form of the Initialize parameters.
type initFile struct {
	Owner           string `yaml:"owner"`
	PaymentCurrency string `yaml:"payment_currency_address"`
	UnitPrice       string `yaml:"unit_price"`
	MaxItems        uint32 `yaml:"max_items"`
	Name            string `yaml:"name"`
	Symbol          string `yaml:"symbol"`
	ItemURI         string `yaml:"item_uri"`
	ItemExtension   any    `yaml:"item_extension"`
	TemplateID      uint64 `yaml:"template_id"`
}

func loadInitParams(path string) (interfaces.InstantiateParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return interfaces.InstantiateParams{}, err
	}
	return parseInitParams(data)
}

func parseInitParams(data []byte) (interfaces.InstantiateParams, error) {
	var file initFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return interfaces.InstantiateParams{}, fmt.Errorf("parse params: %w", err)
	}

	owner, err := interfaces.NewAddressFromHex(file.Owner)
	if err != nil {
		return interfaces.InstantiateParams{}, fmt.Errorf("owner: %w", err)
	}
	currency, err := interfaces.NewAddressFromHex(file.PaymentCurrency)
	if err != nil {
		return interfaces.InstantiateParams{}, fmt.Errorf("payment_currency_address: %w", err)
	}
	price, err := interfaces.ParseAmount(file.UnitPrice)
	if err != nil {
		return interfaces.InstantiateParams{}, fmt.Errorf("unit_price: %w", err)
	}

	params := interfaces.InstantiateParams{
		Owner:           owner,
		PaymentCurrency: currency,
		UnitPrice:       price,
		MaxItems:        file.MaxItems,
		Name:            file.Name,
		Symbol:          file.Symbol,
		ItemURI:         file.ItemURI,
		TemplateID:      file.TemplateID,
	}

	if file.ItemExtension != nil {
		params.ItemExtension, err = json.Marshal(file.ItemExtension)
		if err != nil {
			return interfaces.InstantiateParams{}, fmt.Errorf("item_extension: %w", err)
		}
	}
	return params, nil
}
