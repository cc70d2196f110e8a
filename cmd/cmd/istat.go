package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func DefineIStatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "istat <image> <inode>",
		Short:        "Print details of a metadata record",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE:         RunIStat,
	}

	cmd.Flags().Uint64P("numblocks", "B", 0, "force the number of blocks printed")
	cmd.Flags().Int64P("skew", "s", 0, "clock skew in seconds to adjust displayed times")

	return cmd
}

func RunIStat(cmd *cobra.Command, args []string) error {
	inum, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return fmt.Errorf("invalid inode %q: %w", args[1], err)
	}

	numBlocks, _ := cmd.Flags().GetUint64("numblocks")
	skew, _ := cmd.Flags().GetInt64("skew")

	h, im, err := openTarget(cmd, args[0])
	if err != nil {
		return err
	}
	defer im.Close()
	defer h.Close()

	return h.IStat(os.Stdout, inum, numBlocks, skew)
}
