package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

func DefineFSStatCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "fsstat <image>",
		Short:        "Print file system layout details",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE:         RunFSStat,
	}
}

func RunFSStat(cmd *cobra.Command, args []string) error {
	h, im, err := openTarget(cmd, args[0])
	if err != nil {
		return err
	}
	defer im.Close()
	defer h.Close()

	return h.FSStat(os.Stdout)
}
