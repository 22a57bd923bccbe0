package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitebudget/backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listYAML = `name: Weekly groceries
items:
  - name: Milk
    quantity: 1
    unit: l
    category: Dairy
    estimated_price: 50
  - name: Chicken Breast
    quantity: 1
    unit: kg
    category: Meat
    estimated_price: 120
  - name: Bananas
    quantity: 6
    category: Fruits
    estimated_price: 25
`

const marketYAML = `store_name: Mercado
purchase_date: 2024-03-02
items:
  - product_name: Leche
    quantity: 1
    unit_price: 47
    category: Dairy
`

const butcherJSON = `{
  "storeName": "Butcher",
  "items": [
    {"productName": "Pechuga", "quantity": 1, "unitPrice": 135, "category": "Meat"}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestReconcileCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "list.yaml", listYAML)
	market := writeFile(t, dir, "market.yaml", marketYAML)
	butcher := writeFile(t, dir, "butcher.json", butcherJSON)

	out, err := execute(t, "--list", list, "--receipt", market, "--receipt", butcher, "--output", "json")
	require.NoError(t, err)

	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Results, 3)

	assert.Equal(t, domain.StatusSaved, report.Results[0].Status)
	assert.Equal(t, "Leche", report.Results[0].Purchased.ProductName)
	assert.InDelta(t, 47.0, report.Results[0].Purchased.TotalPrice, 1e-9, "total derived from quantity and unit price")

	assert.Equal(t, domain.StatusOverspent, report.Results[1].Status)
	assert.Equal(t, 1, report.Results[1].PurchasedIndex, "receipt items are concatenated in flag order")

	assert.Equal(t, domain.StatusNotPurchased, report.Results[2].Status)
	assert.InDelta(t, 3.0, report.TotalSavings, 1e-9)
	assert.InDelta(t, 15.0, report.TotalOverspend, 1e-9)
}

func TestReconcileCommand_Table(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "list.yaml", listYAML)
	market := writeFile(t, dir, "market.yaml", marketYAML)

	out, err := execute(t, "-l", list, "-r", market)
	require.NoError(t, err)

	assert.Contains(t, out, "Weekly groceries")
	assert.Contains(t, out, "PLANNED")
	assert.Contains(t, out, "Leche")
	assert.Contains(t, out, "saved")
	assert.Contains(t, out, "not_purchased")
	assert.Contains(t, out, "Matched 1 of 3 planned items")
	assert.Contains(t, out, "Total savings:   3.00")
}

func TestReconcileCommand_RequireBoth(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "list.yaml", listYAML)
	market := writeFile(t, dir, "market.yaml", marketYAML)

	out, err := execute(t, "-l", list, "-r", market, "--require-both", "-o", "json")
	require.NoError(t, err)

	var report domain.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	for _, r := range report.Results {
		assert.Equal(t, domain.StatusNotPurchased, r.Status, r.Planned.Name)
	}
}

func TestReconcileCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	list := writeFile(t, dir, "list.yaml", listYAML)
	market := writeFile(t, dir, "market.yaml", marketYAML)
	invalid := writeFile(t, dir, "invalid.yaml", "items:\n  - name: \"\"\n    quantity: 1\n")
	broken := writeFile(t, dir, "broken.yaml", "items: [unterminated")

	tests := []struct {
		name string
		args []string
	}{
		{"missing list flag", []string{"-r", market}},
		{"missing receipt flag", []string{"-l", list}},
		{"unknown output", []string{"-l", list, "-r", market, "-o", "xml"}},
		{"missing file", []string{"-l", filepath.Join(dir, "nope.yaml"), "-r", market}},
		{"unparsable file", []string{"-l", broken, "-r", market}},
		{"invalid list item", []string{"-l", invalid, "-r", market}},
		{"positional arguments", []string{"-l", list, "-r", market, "extra"}},
		{"zero name threshold", []string{"-l", list, "-r", market, "--name-threshold", "0"}},
		{"name threshold above one", []string{"-l", list, "-r", market, "--name-threshold", "1.5"}},
		{"zero price tolerance", []string{"-l", list, "-r", market, "--price-tolerance", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestLoadList_DefaultsNameToFileName(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "party.yml", "items:\n  - name: Chips\n    quantity: 2\n    estimated_price: 40\n")

	list, err := loadList(path)
	require.NoError(t, err)
	assert.Equal(t, "party", list.Name)
	require.Len(t, list.Items, 1)
	assert.InDelta(t, 40.0, list.Items[0].EstimatedPrice, 1e-9)
}

func TestLoadReceipt_YAMLKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "market.yaml", marketYAML)

	receipt, err := loadReceipt(path)
	require.NoError(t, err)
	assert.Equal(t, "Mercado", receipt.StoreName)
	assert.Equal(t, 2024, receipt.PurchaseDate.Year())
	require.Len(t, receipt.Items, 1)
	assert.InDelta(t, 47.0, receipt.Items[0].UnitPrice, 1e-9)
}
