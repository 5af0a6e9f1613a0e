package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/itchgrab/itchgrab/internal/itchio"
	"github.com/itchgrab/itchgrab/internal/models"
)

var (
	lsAuthor string
	lsTitle  string
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List purchased assets",
	Long: `List every asset in your itch.io library, optionally filtered.

Filters are case-insensitive substring matches; combining --author and
--title keeps only assets matching both.

Examples:
  itchgrab ls
  itchgrab ls --author kenney
  itchgrab ls --author kenney --title "pixel"`,
	RunE: runLs,
}

func init() {
	lsCmd.Flags().StringVarP(&lsAuthor, "author", "a", "", "filter by author substring")
	lsCmd.Flags().StringVarP(&lsTitle, "title", "t", "", "filter by title substring")
}

func runLs(cmd *cobra.Command, args []string) error {
	key, err := resolveAPIKey()
	if err != nil {
		return err
	}

	client := itchio.New(key, cfg.APIURL)
	catalog, err := client.FetchAssets(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch library: %w", err)
	}

	assets := models.FilterAssets(catalog, lsAuthor, lsTitle)
	if len(assets) == 0 {
		fmt.Println("No assets matched.")
		return nil
	}

	styled := term.IsTerminal(int(os.Stdout.Fd()))
	renderAssetTable(os.Stdout, assets, styled)
	fmt.Printf("\n%d assets\n", len(assets))
	return nil
}
