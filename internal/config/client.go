package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"public-chat/internal/feed"
)

// Client is the chat client's configuration.
type Client struct {
	Endpoint string
	Project  string
	Feed     feed.Config
}

// EnvFiles are loaded in order; variables already set are never overridden.
var EnvFiles = []string{".env.local", ".env"}

// LoadClient reads the CHAT_* variables, first loading any env files present.
func LoadClient() (*Client, error) {
	for _, name := range EnvFiles {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}

	cfg := &Client{
		Endpoint: strings.TrimSpace(os.Getenv("CHAT_ENDPOINT")),
		Project:  strings.TrimSpace(os.Getenv("CHAT_PROJECT")),
		Feed: feed.Config{
			DatabaseID:   strings.TrimSpace(os.Getenv("CHAT_DATABASE_ID")),
			CollectionID: strings.TrimSpace(os.Getenv("CHAT_MESSAGES_COLLECTION_ID")),
			BucketID:     strings.TrimSpace(os.Getenv("CHAT_BUCKET_ID")),
			OrphanPolicy: feed.ParseOrphanPolicy(os.Getenv("CHAT_ORPHAN_POLICY")),
		},
	}

	var missing []string
	for key, val := range map[string]string{
		"CHAT_ENDPOINT":               cfg.Endpoint,
		"CHAT_PROJECT":                cfg.Project,
		"CHAT_DATABASE_ID":            cfg.Feed.DatabaseID,
		"CHAT_MESSAGES_COLLECTION_ID": cfg.Feed.CollectionID,
		"CHAT_BUCKET_ID":              cfg.Feed.BucketID,
	} {
		if val == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return cfg, fmt.Errorf("%w: %s", feed.ErrConfigMissing, strings.Join(missing, ", "))
	}
	return cfg, nil
}
