package memory_test

import (
	"testing"

	"github.com/aretw0/ussdflow/pkg/adapters/memory"
	"github.com/aretw0/ussdflow/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunParamStoreContract(t, memory.NewStore())
}

func TestMemoryLedger_Contract(t *testing.T) {
	ports.RunLedgerContract(t, memory.NewLedger())
}
