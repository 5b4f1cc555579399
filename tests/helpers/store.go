package helpers

import (
	"context"
	"testing"

	"github.com/xiaot623/uatdesk/internal/policy"
	"github.com/xiaot623/uatdesk/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func NewTestPolicyEngine(t *testing.T) *policy.Engine {
	t.Helper()

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}
	return engine
}
