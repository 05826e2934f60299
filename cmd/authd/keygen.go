package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/artilun/credential-service/internal/core/security"
)

// NewKeygenCmd creates the keygen subcommand.
func NewKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Print a new Ed25519 signing key",
		Long:  `Generate a PKCS#8 PEM encoded Ed25519 private key suitable for JWT_PRIVATE_KEY.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pem, err := security.GenerateSigningKey()
			if err != nil {
				return oops.Code("KEYGEN_FAILED").Wrap(err)
			}
			fmt.Fprint(cmd.OutOrStdout(), pem)
			return nil
		},
	}
}
