// Package clientcli provides a client library for interacting with payqr servers.
//
// It supports generate, scan, and audit operations with bearer token
// authentication. The package includes profile-based configuration for
// managing connections to multiple servers.
//
// # Basic Usage
//
// Create a client and generate a payment code:
//
//	cfg := &clientcli.Config{
//		Endpoint: "http://localhost:8080",
//		Token:    "your-token-secret",
//	}
//
//	client, err := clientcli.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := client.Generate(ctx, clientcli.GenerateOptions{
//		Payment:   &codec.Payment{Recipient: "ACME GmbH", IBAN: "DE89370400440532013000", Amount: "12.50", Currency: "EUR"},
//		LocalPath: "invoice.png",
//	})
//
// # Profile Configuration
//
// Use profiles to manage multiple server configurations:
//
//	configFile, err := clientcli.LoadConfigFile("~/.payqr/config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cfg := clientcli.ConfigFromProfile(profile)
//	client, err := clientcli.New(cfg)
//
// # Output Formatting
//
// Use formatters for human-readable or JSON output:
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatScan(os.Stdout, result)
package clientcli
