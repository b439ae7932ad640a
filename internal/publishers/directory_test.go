package publishers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writePublishersFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "publishers.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write publishers file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writePublishersFile(t, `{
		"devnet": {"5akS...key1": "Example Trading", "7pQw...key2": "Another Desk"},
		"mainnet": {"5akS...key1": "Mainnet Name"}
	}`)

	dir := Load(path, "devnet", zerolog.Nop())
	if got := dir.LookupName("5akS...key1"); got != "Example Trading" {
		t.Fatalf("LookupName = %q", got)
	}
	if got := dir.LookupName("unknown-key"); got != "unknown-key" {
		t.Fatalf("unknown key should fall back to the key itself, got %q", got)
	}
}

func TestLoadNetworkSelection(t *testing.T) {
	path := writePublishersFile(t, `{"mainnet": {"k": "Mainnet Only"}}`)

	dir := Load(path, "devnet", zerolog.Nop())
	if got := dir.LookupName("k"); got != "k" {
		t.Fatalf("names from other networks must not apply, got %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := Load(filepath.Join(t.TempDir(), "nope.json"), "devnet", zerolog.Nop())
	if got := dir.LookupName("k"); got != "k" {
		t.Fatalf("missing file should degrade to raw keys, got %q", got)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := writePublishersFile(t, `{"devnet": [1, 2]}`)
	dir := Load(path, "devnet", zerolog.Nop())
	if got := dir.LookupName("k"); got != "k" {
		t.Fatalf("malformed file should degrade to raw keys, got %q", got)
	}
}

func TestLookupNameNilDirectory(t *testing.T) {
	var dir *Directory
	if got := dir.LookupName("k"); got != "k" {
		t.Fatalf("nil directory should echo the key, got %q", got)
	}
}

func TestFromMap(t *testing.T) {
	dir := FromMap(map[string]string{"k": "Name"})
	if got := dir.LookupName("k"); got != "Name" {
		t.Fatalf("LookupName = %q", got)
	}
	if got := FromMap(nil).LookupName("k"); got != "k" {
		t.Fatalf("nil map should behave as empty, got %q", got)
	}
}
