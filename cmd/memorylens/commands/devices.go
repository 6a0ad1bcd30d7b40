package commands

import (
	"fmt"

	"github.com/petems/memorylens/internal/audio"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List microphones",
	Long: `List audio input devices. Set "audio.device_id" in the config file to
one of the listed names to use it instead of the system default (*).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		capture, err := audio.New(cfg.Audio, log)
		if err != nil {
			return err
		}
		defer capture.Close()

		devices, err := capture.ListDevices()
		if err != nil {
			return err
		}
		for _, d := range devices {
			marker := " "
			if d.Default {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, d.ID)
		}
		return nil
	},
}
