package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/clinsec-lab/asklepios/pkg/service/crypto"
)

// Crypto holds the master key for the record cipher. The key only ever
// arrives via environment variable; there is no file fallback, so it cannot
// end up in a config file checked into a repository.
type Crypto struct {
	masterKeyHex string
}

// Flags returns CLI flags for cipher configuration
func (c *Crypto) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "master-key",
			Usage:       "Hex-encoded 32-byte master key for record encryption",
			Required:    true,
			Sources:     cli.EnvVars("ASKLEPIOS_MASTER_KEY"),
			Destination: &c.masterKeyHex,
		},
	}
}

// Configure builds the record cipher from the configured master key
func (c *Crypto) Configure() (*crypto.Cipher, error) {
	cipher, err := crypto.NewFromHex(c.masterKeyHex)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize record cipher")
	}
	return cipher, nil
}
