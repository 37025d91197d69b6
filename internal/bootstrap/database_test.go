package bootstrap

import (
	"context"
	"strings"
	"testing"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/config"
)

func TestBuildJobStore_Memory(t *testing.T) {
	cfg := sanitizedConfig()
	cfg.Store.Backend = config.StoreMemory

	store, closer, err := BuildJobStore(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("BuildJobStore() error = %v", err)
	}
	if store == nil {
		t.Fatal("BuildJobStore() store is nil")
	}
	if closer == nil {
		t.Fatal("BuildJobStore() closer is nil")
	}
	if err := closer(); err != nil {
		t.Fatalf("closer() error = %v", err)
	}
}

func TestBuildJobStore_UnknownBackend(t *testing.T) {
	cfg := sanitizedConfig()
	cfg.Store.Backend = "etcd"

	_, _, err := BuildJobStore(context.Background(), cfg, testLogger())
	if err == nil {
		t.Fatal("BuildJobStore() error = nil, want unknown backend error")
	}
	if !strings.Contains(err.Error(), "unknown job store backend") {
		t.Fatalf("BuildJobStore() error = %q, want it to name the unknown backend", err)
	}
}

func TestBuildJobStore_NilConfig(t *testing.T) {
	_, _, err := BuildJobStore(context.Background(), nil, testLogger())
	if err == nil {
		t.Fatal("BuildJobStore() error = nil, want config required error")
	}
}
