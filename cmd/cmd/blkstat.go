package cmd

import (
	"fmt"
	"strconv"

	"github.com/fskope/fskope/internal/fsys"
	"github.com/spf13/cobra"
)

func DefineBlkStatCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "blkstat <image> <addr>",
		Short:        "Print the allocation status of a block",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunBlkStat,
	}
}

func RunBlkStat(cmd *cobra.Command, args []string) error {
	addr, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid block address %q: %w", args[1], err)
	}

	h, im, err := openTarget(cmd, args[0])
	if err != nil {
		return err
	}
	defer im.Close()
	defer h.Close()

	flags, err := h.BlockFlags(addr)
	if err != nil {
		return err
	}

	fmt.Printf("Block: %d\n", addr)
	if flags&fsys.FlagMeta != 0 {
		fmt.Println("Type: Meta Data")
	} else {
		fmt.Println("Type: Content")
	}
	if flags&fsys.FlagAlloc != 0 {
		fmt.Println("Allocated")
	} else {
		fmt.Println("Not Allocated")
	}
	return nil
}
