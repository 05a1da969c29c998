// Package source loads the financial statement text a run analyzes.
package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrNotFound marks a symbol with no statement file.
var ErrNotFound = eris.New("source: statement not found")

// Document is a company's statement text plus optional market sidecar data.
type Document struct {
	Symbol     string
	Text       string
	StockPrice *float64
	Currency   string
}

// Provider resolves a ticker symbol to its statement document.
type Provider interface {
	Load(ctx context.Context, symbol string) (*Document, error)
}

// Sidecar is the optional <SYMBOL>.meta.yaml next to a statement file.
type Sidecar struct {
	StockPrice *float64 `yaml:"stock_price"`
	Currency   string   `yaml:"currency"`
}

// FSProvider reads statement text from a directory: <dir>/<SYMBOL>.txt or
// <dir>/<SYMBOL>.md, with an optional <SYMBOL>.meta.yaml sidecar.
type FSProvider struct {
	dir string
}

// NewFSProvider creates a filesystem document provider.
func NewFSProvider(dir string) *FSProvider {
	return &FSProvider{dir: dir}
}

func (p *FSProvider) Load(ctx context.Context, symbol string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "source: load")
	}

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, eris.New("source: empty symbol")
	}

	var text string
	var found bool
	for _, ext := range []string{".txt", ".md"} {
		data, err := os.ReadFile(filepath.Join(p.dir, symbol+ext))
		if err == nil {
			text = string(data)
			found = true
			break
		}
		if !os.IsNotExist(err) {
			return nil, eris.Wrapf(err, "source: read statement for %s", symbol)
		}
	}
	if !found {
		return nil, eris.Wrapf(ErrNotFound, "no statement file for %s in %s", symbol, p.dir)
	}
	if strings.TrimSpace(text) == "" {
		return nil, eris.Errorf("source: statement for %s is empty", symbol)
	}

	doc := &Document{Symbol: symbol, Text: text}

	metaPath := filepath.Join(p.dir, symbol+".meta.yaml")
	if data, err := os.ReadFile(metaPath); err == nil {
		var sc Sidecar
		if err := yaml.Unmarshal(data, &sc); err != nil {
			return nil, eris.Wrapf(err, "source: parse sidecar for %s", symbol)
		}
		doc.StockPrice = sc.StockPrice
		doc.Currency = sc.Currency
	} else if !os.IsNotExist(err) {
		return nil, eris.Wrapf(err, "source: read sidecar for %s", symbol)
	}

	return doc, nil
}
