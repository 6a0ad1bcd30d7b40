package commands

import (
	"fmt"
	"os"

	"github.com/petems/memorylens/internal/api"
	"github.com/petems/memorylens/internal/camera"
	"github.com/spf13/cobra"
)

var (
	registerName  string
	registerImage string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a face",
	Long: `Register a face for a name.

The image must contain exactly one face. Without --image the current frame
from the configured camera source is used.

Examples:
  memorylens register --name "Ada"
  memorylens register --name "Ada" --image ada.jpg`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		img, err := registrationImage(cmd)
		if err != nil {
			return err
		}

		client := api.New(cfg.API.URL, cfg.API.Timeout.D(), log)
		reg, err := client.RegisterFace(cmd.Context(), registerName, camera.DataURL(img))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (%s)\n", reg.Name, reg.PersonID)
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerName, "name", "", "name to register (required)")
	registerCmd.Flags().StringVar(&registerImage, "image", "", "image file (default: current camera frame)")
}

func registrationImage(cmd *cobra.Command) ([]byte, error) {
	if registerImage != "" {
		return os.ReadFile(registerImage)
	}

	cam, err := camera.New(cfg.Camera, cfg.API.Timeout.D())
	if err != nil {
		return nil, err
	}
	img, err := cam.Snapshot(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	return img, nil
}
