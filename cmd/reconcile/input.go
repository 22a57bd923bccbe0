package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitebudget/backend/internal/domain"
	"gopkg.in/yaml.v3"
)

// decodeFile reads YAML (snake_case keys) or, for .json files, JSON (camelCase keys as served by the API)
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadList(path string) (*domain.ShoppingList, error) {
	var list domain.ShoppingList
	if err := decodeFile(path, &list); err != nil {
		return nil, err
	}
	if list.Name == "" {
		list.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &list, nil
}

func loadReceipt(path string) (*domain.Receipt, error) {
	var receipt domain.Receipt
	if err := decodeFile(path, &receipt); err != nil {
		return nil, err
	}
	if receipt.StoreName == "" {
		receipt.StoreName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &receipt, nil
}
