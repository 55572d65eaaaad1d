package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Print the tool catalog offered to the model",
	Long:  `Print the registered tools as JSON function declarations, in the order they are sent to the model.`,
	RunE:  runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	rt, err := setupApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	te, err := rt.tools()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(te.Definitions())
}
