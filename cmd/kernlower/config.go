package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kernlower/internal/project"
)

// loadConfig reads --config or the nearest kernlower.toml, then applies the
// lowering flags the command defines and the user set.
func loadConfig(cmd *cobra.Command) (project.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return project.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	var cfg project.Config
	if path != "" {
		cfg, err = project.Load(path)
	} else {
		cfg, err = project.Discover(".")
	}
	if err != nil {
		return project.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Lookup("library") != nil && flags.Changed("library") {
		lib, err := flags.GetString("library")
		if err != nil {
			return project.Config{}, fmt.Errorf("failed to get library flag: %w", err)
		}
		cfg.SetLibrary(lib)
	}
	if flags.Lookup("addrspace") != nil && flags.Changed("addrspace") {
		space, err := flags.GetUint32("addrspace")
		if err != nil {
			return project.Config{}, fmt.Errorf("failed to get addrspace flag: %w", err)
		}
		cfg.Lowering.AddrSpace = space
	}
	if flags.Lookup("dead-decode") != nil && flags.Changed("dead-decode") {
		mode, err := flags.GetString("dead-decode")
		if err != nil {
			return project.Config{}, fmt.Errorf("failed to get dead-decode flag: %w", err)
		}
		cfg.Lowering.DeadDecode = mode
	}
	if err := cfg.Validate(); err != nil {
		return project.Config{}, err
	}
	return cfg, nil
}

func addLoweringFlags(cmd *cobra.Command) {
	cmd.Flags().String("library", "", "support library .ll linked into every module (overrides [library].path)")
	cmd.Flags().Uint32("addrspace", 1, "address space of lowered array pointers (overrides [lowering].addrspace)")
	cmd.Flags().String("dead-decode", "erase", "what to do with rewritten decode calls (erase|detach)")
}
