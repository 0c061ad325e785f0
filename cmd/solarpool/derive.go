package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"solarpool/internal/amm"
	"solarpool/internal/config"
)

type derivedAuthority struct {
	Owner     string `json:"owner"`
	Authority string `json:"authority"`
	Bump      uint8  `json:"bump"`
}

func runDerive(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDerive(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	programID, err := config.ParseProgramID(cfg.ProgramID, amm.DefaultProgramID)
	if err != nil {
		return err
	}
	owners, err := config.ParsePublicKeys(cfg.Owners)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		return fmt.Errorf("owner list is required")
	}

	out := make([]derivedAuthority, 0, len(owners))
	for _, owner := range owners {
		addr, bump, err := amm.DeriveAuthority(programID, owner)
		if err != nil {
			return err
		}
		out = append(out, derivedAuthority{Owner: owner.String(), Authority: addr.String(), Bump: bump})
	}
	return writeJSON(cmd.OutOrStdout(), out)
}
