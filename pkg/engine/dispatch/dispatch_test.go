package dispatch

import (
	"testing"

	"github.com/krzycz/pmemkv/pkg/config"
	"github.com/krzycz/pmemkv/pkg/engine/blackhole"
	"github.com/krzycz/pmemkv/pkg/status"
)

func TestOpenUnknownNameReturnsFailed(t *testing.T) {
	_, err := Open("no-such-engine", config.New())
	if !status.Is(err, status.Failed) {
		t.Errorf("Open(unknown): got %v, want Failed", err)
	}
}

func TestOpenBlackholeResolves(t *testing.T) {
	e, err := Open(blackhole.Name, config.New())
	if err != nil {
		t.Fatalf("Open(blackhole): %v", err)
	}
	if err := Close(e); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestOpenSortedRequiresPath(t *testing.T) {
	_, err := Open("sorted", config.New())
	if err == nil {
		t.Error("Open(sorted) with no path should fail")
	}
}
