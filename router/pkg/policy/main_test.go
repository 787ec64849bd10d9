package policy

import (
	"context"
	"os"
	"testing"

	"github.com/cascadelabs/feerouter/router/pkg/pg/pgtesting"
	routertesting "github.com/cascadelabs/feerouter/utils/pkg/testing"
)

var sharedDB *pgtesting.DB

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_DB_TESTS") == "1" {
		os.Exit(m.Run())
	}

	log := routertesting.NewLogger()
	var err error
	sharedDB, err = pgtesting.NewDB(context.Background(), log, nil)
	if err != nil {
		log.Error("failed to create shared DB", "error", err)
		os.Exit(1)
	}
	code := m.Run()
	sharedDB.Close()
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if sharedDB == nil {
		t.Skip("database tests skipped")
	}
}
