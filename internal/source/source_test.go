package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStatementWithSidecar(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ACME.txt"), []byte("Annual Report FY2025..."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ACME.meta.yaml"), []byte("stock_price: 52.50\ncurrency: USD\n"), 0644))

	doc, err := NewFSProvider(dir).Load(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "ACME", doc.Symbol)
	assert.Equal(t, "Annual Report FY2025...", doc.Text)
	require.NotNil(t, doc.StockPrice)
	assert.InDelta(t, 52.50, *doc.StockPrice, 0.001)
	assert.Equal(t, "USD", doc.Currency)
}

func TestLoadMarkdownFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "GLOBEX.md"), []byte("# Report"), 0644))

	doc, err := NewFSProvider(dir).Load(context.Background(), "GLOBEX")
	require.NoError(t, err)
	assert.Equal(t, "# Report", doc.Text)
	assert.Nil(t, doc.StockPrice)
}

func TestLoadMissingStatement(t *testing.T) {
	_, err := NewFSProvider(t.TempDir()).Load(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no statement file")
}

func TestLoadEmptyStatement(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BLANK.txt"), []byte("   \n"), 0644))

	_, err := NewFSProvider(dir).Load(context.Background(), "BLANK")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}

func TestLoadEmptySymbol(t *testing.T) {
	_, err := NewFSProvider(t.TempDir()).Load(context.Background(), "  ")
	require.Error(t, err)
}

func TestLoadMalformedSidecar(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BAD.txt"), []byte("text"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BAD.meta.yaml"), []byte("stock_price: [not a number"), 0644))

	_, err := NewFSProvider(dir).Load(context.Background(), "BAD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse sidecar")
}

func TestLoadCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFSProvider(t.TempDir()).Load(ctx, "ACME")
	require.Error(t, err)
}
