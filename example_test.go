package ussdflow_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aretw0/ussdflow"
	"github.com/aretw0/ussdflow/pkg/adapters/sim"
	"github.com/aretw0/ussdflow/pkg/domain"
)

// ExampleNew_simulator answers one carrier menu with the in-process host.
// A long send delay keeps the menu on screen so the result is deterministic.
func ExampleNew_simulator() {
	host := sim.New()
	ctrl, err := ussdflow.New(host, ussdflow.WithSendDelay(time.Hour))
	if err != nil {
		log.Fatal(err)
	}
	defer ctrl.Close()

	ctx := context.Background()
	if err := ctrl.Setup(ctx, domain.Setup{Type: domain.Balance}); err != nil {
		log.Fatal(err)
	}
	if err := ctrl.Enable(ctx); err != nil {
		log.Fatal(err)
	}

	menu := sim.NewDialog(sim.Screen{Text: "1. Transfer Money\n5. Financial Services", Input: true})
	if err := ctrl.HandleDialog(ctx, menu); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Injected: %v\n", host.Injected())
	fmt.Printf("Step: %s\n", ctrl.Status().CurrentStep)
	// Output:
	// Injected: [5]
	// Step: sub_menu
}
