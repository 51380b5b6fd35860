/*
Package ussdflow automates mobile-money USSD dialogs.

A caller configures one transaction (cash in, cash out, airtime transfer,
merchant payment, balance or commission inquiry), enables automation and dials
the carrier code. From then on every dialog notification delivered by the host
is classified, answered with the right menu digit or value, and confirmed by
clicking the send button, until the carrier shows a terminal message. When the
flow needs a PIN the caller did not provide, it pauses in the PIN prompt step
until SubmitPIN.

# Concept

The flow itself is a pure state machine (internal/runtime). The Controller owns
the live parameters, persists every step before acting on the dialog, and talks
to the device through the ports.Host interface. Hosts exist for a real Android
device over adb (pkg/adapters/adb) and for scripted simulation (pkg/adapters/sim).

# Usage

	host, err := adb.New("emulator-5554")
	if err != nil {
		log.Fatal(err)
	}

	ctrl, err := ussdflow.New(host, ussdflow.WithLedger(memory.NewLedger()))
	if err != nil {
		log.Fatal(err)
	}
	defer ctrl.Close()

	go ctrl.Run(ctx, host)

	err = ctrl.DialAndAutomate(ctx, "*171#", domain.Setup{
		Type:   domain.CashOut,
		Phone:  "0244123456",
		Amount: "100",
	})
	if err != nil {
		log.Fatal(err)
	}

	for st := range ctrl.Watch(ctx) {
		if st.PinPromptActive {
			_ = ctrl.SubmitPIN(ctx, readPIN())
		}
	}
*/
package ussdflow
