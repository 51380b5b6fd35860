package ussdflow

// Version is the release of the module. Release builds override it with
// -ldflags "-X github.com/aretw0/ussdflow.Version=v1.2.3".
var Version = "dev"
