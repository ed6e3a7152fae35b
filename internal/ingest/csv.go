// Package ingest loads product catalogs into the store: CSV parsing, the
// background import worker, and the built-in sample catalog.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Uttutt17/akari/internal/catalog"
)

const (
	attrPrefix  = "attr:"
	assetPrefix = "asset:"
)

// ParseCatalog reads a product catalog from CSV. The header must contain
// product_id and name; category is optional. Attribute columns are prefixed
// "attr:" and asset columns "asset:", with the suffix naming the attribute
// or asset type:
//
//	product_id,name,category,attr:price,attr:usage_context,asset:main_image
//
// Attribute cells are type-inferred: "true"/"false" become booleans, numeric
// text becomes a number, pipe-separated text ("travel|gym") becomes an
// array, anything else stays a string. Empty cells are skipped.
func ParseCatalog(r io.Reader) ([]catalog.Product, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty catalog file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	if _, ok := cols["product_id"]; !ok {
		return nil, fmt.Errorf("header missing required column product_id")
	}
	if _, ok := cols["name"]; !ok {
		return nil, fmt.Errorf("header missing required column name")
	}

	var products []catalog.Product
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		cell := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		p := catalog.Product{
			ProductID:  cell("product_id"),
			Name:       cell("name"),
			Category:   cell("category"),
			Attributes: make(map[string]catalog.Value),
		}
		if p.ProductID == "" {
			return nil, fmt.Errorf("line %d: product_id is empty", line)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("line %d: name is empty", line)
		}

		for _, col := range header {
			col = strings.TrimSpace(col)
			raw := cell(col)
			if raw == "" {
				continue
			}
			switch {
			case strings.HasPrefix(col, attrPrefix):
				p.Attributes[strings.TrimPrefix(col, attrPrefix)] = inferValue(raw)
			case strings.HasPrefix(col, assetPrefix):
				p.Assets = append(p.Assets, catalog.VisualAsset{
					AssetType: strings.TrimPrefix(col, assetPrefix),
					URL:       raw,
				})
			}
		}

		products = append(products, p)
	}

	return products, nil
}

// inferValue maps a CSV cell to a typed attribute value.
func inferValue(raw string) catalog.Value {
	switch strings.ToLower(raw) {
	case "true":
		return catalog.Boolean(true)
	case "false":
		return catalog.Boolean(false)
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return catalog.Number(n)
	}
	if strings.Contains(raw, "|") {
		parts := strings.Split(raw, "|")
		items := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		return catalog.Array(items...)
	}
	return catalog.String(raw)
}
