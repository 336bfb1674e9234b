// Package cache persists provider model listings so repeated lookups do not
// hit the network.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	ListingTTL = 30 * time.Minute
	cacheDir   = "proseforge"
)

// Model is one cached model entry, carrying the display metadata the CLI
// shows so a cache hit never has to re-derive it.
type Model struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	InputLimit  int    `json:"input_limit,omitempty"`
}

// Listing is one provider's cached model list.
type Listing struct {
	Provider  string    `json:"provider"`
	Models    []Model   `json:"models"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fresh reports whether the listing is recent enough to serve without a new
// API call.
func (l *Listing) Fresh() bool {
	return l != nil && time.Since(l.FetchedAt) < ListingTTL
}

func listingDir() (string, error) {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, cacheDir), nil
}

func listingPath(provider string) (string, error) {
	dir, err := listingDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, provider+"-models.json"), nil
}

// ReadListing loads a provider's cached model list. A missing or corrupt
// file is an error; callers treat any error as a cache miss.
func ReadListing(provider string) (*Listing, error) {
	path, err := listingPath(provider)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var listing Listing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("corrupt model cache %s: %w", path, err)
	}
	return &listing, nil
}

// WriteListing stores a provider's model list with a fresh timestamp.
func WriteListing(provider string, models []Model) error {
	dir, err := listingDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := listingPath(provider)
	if err != nil {
		return err
	}

	data, err := json.Marshal(Listing{
		Provider:  provider,
		Models:    models,
		FetchedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	// Write-then-rename keeps concurrent readers from seeing a torn file.
	f, err := os.CreateTemp(dir, provider+"-models-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := f.Name()
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	renamed = true
	return nil
}
