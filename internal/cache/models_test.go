package cache

import (
	"testing"
	"time"
)

func TestListingRoundTrip(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	models := []Model{
		{ID: "claude-sonnet-4-5", DisplayName: "Claude Sonnet 4.5", InputLimit: 200_000},
		{ID: "claude-opus-4-5", InputLimit: 200_000},
	}
	if err := WriteListing("anthropic", models); err != nil {
		t.Fatalf("WriteListing: %v", err)
	}

	listing, err := ReadListing("anthropic")
	if err != nil {
		t.Fatalf("ReadListing: %v", err)
	}
	if listing.Provider != "anthropic" {
		t.Errorf("provider = %q", listing.Provider)
	}
	if len(listing.Models) != 2 {
		t.Fatalf("models = %d, want 2", len(listing.Models))
	}
	// A hit serves the metadata back without re-derivation.
	if got := listing.Models[0]; got.DisplayName != "Claude Sonnet 4.5" || got.InputLimit != 200_000 {
		t.Errorf("first model = %+v", got)
	}
	if !listing.Fresh() {
		t.Error("freshly written listing should be fresh")
	}

	// Providers don't collide.
	if _, err := ReadListing("openai"); err == nil {
		t.Error("unwritten provider should miss")
	}
}

func TestListingFresh(t *testing.T) {
	var nilListing *Listing
	if nilListing.Fresh() {
		t.Error("nil listing is not fresh")
	}
	stale := &Listing{FetchedAt: time.Now().Add(-time.Hour)}
	if stale.Fresh() {
		t.Error("hour-old listing should be stale")
	}
	fresh := &Listing{FetchedAt: time.Now()}
	if !fresh.Fresh() {
		t.Error("current listing should be fresh")
	}
}
