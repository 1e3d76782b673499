package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/surrealdb/surrealdb.go"

	"github.com/raphaelgruber/podsearch/internal/config"
)

func TestConfigAuth(t *testing.T) {
	cfg := Config{Namespace: "pod", Database: "index", Username: "u", Password: "p"}

	cfg.AuthLevel = "database"
	assert.Equal(t, surrealdb.Auth{Namespace: "pod", Database: "index", Username: "u", Password: "p"}, cfg.auth())

	for _, level := range []string{"root", "", "namespace"} {
		cfg.AuthLevel = level
		assert.Equal(t, surrealdb.Auth{Username: "u", Password: "p"}, cfg.auth(), level)
	}
}

func TestConfigBaseURL(t *testing.T) {
	assert.Equal(t, "ws://localhost:8000", Config{URL: "ws://localhost:8000/rpc"}.baseURL())
	assert.Equal(t, "wss://db.example.com", Config{URL: "wss://db.example.com"}.baseURL())
}

func TestConfigFrom(t *testing.T) {
	got := ConfigFrom(config.Config{
		SurrealDBURL:       "ws://db:8000/rpc",
		SurrealDBNamespace: "podsearch",
		SurrealDBDatabase:  "index",
		SurrealDBUser:      "reader",
		SurrealDBPass:      "secret",
		SurrealDBAuthLevel: "database",
	})
	assert.Equal(t, Config{
		URL:       "ws://db:8000/rpc",
		Namespace: "podsearch",
		Database:  "index",
		Username:  "reader",
		Password:  "secret",
		AuthLevel: "database",
	}, got)
}
