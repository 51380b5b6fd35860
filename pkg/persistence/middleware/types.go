package middleware

import "github.com/aretw0/ussdflow/pkg/ports"

// Middleware wraps a ParamStore to add behaviour.
type Middleware func(ports.ParamStore) ports.ParamStore

// LedgerMiddleware wraps a Ledger to add behaviour.
type LedgerMiddleware func(ports.Ledger) ports.Ledger

// Chain applies middlewares so that the first one is outermost.
func Chain(store ports.ParamStore, mws ...Middleware) ports.ParamStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
