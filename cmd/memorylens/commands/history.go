package commands

import (
	"encoding/json"
	"time"

	"github.com/petems/memorylens/internal/api"
	"github.com/petems/memorylens/internal/console"
	"github.com/spf13/cobra"
)

var outputJSON bool

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "List registered people",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.New(cfg.API.URL, cfg.API.Timeout.D(), log)
		people, err := client.People(cmd.Context())
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd, people)
		}
		console.WritePeople(cmd.OutOrStdout(), people, time.Now())
		return nil
	},
}

var memoriesCmd = &cobra.Command{
	Use:   "memories <person-id>",
	Short: "List the memories stored for a person",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := api.New(cfg.API.URL, cfg.API.Timeout.D(), log)
		memories, err := client.PersonMemories(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if outputJSON {
			return writeJSON(cmd, memories)
		}
		console.WriteMemories(cmd.OutOrStdout(), memories, time.Now())
		return nil
	},
}

func init() {
	peopleCmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
	memoriesCmd.Flags().BoolVar(&outputJSON, "json", false, "output as JSON")
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
