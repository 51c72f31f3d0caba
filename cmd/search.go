package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/habedi/dcli/client"
	"github.com/habedi/dcli/pkg/dclierr"
	"github.com/habedi/dcli/pkg/pool"
	"github.com/habedi/dcli/pkg/validation"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type playerSearcher interface {
	SearchPlayer(ctx context.Context, platform client.MembershipType, name string) ([]client.UserInfoCard, error)
}

// searchCmd looks up one or more players by Bungie name.
func searchCmd() *cobra.Command {
	var platformName, memberIDText string
	var numWorkers int

	cmd := &cobra.Command{
		Use:   "search <bungie-name> [more names...]",
		Short: "Search for Destiny 2 players by Bungie name (Name#1234)",
		Args:  parameterArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			platform, err := validation.ParsePlatform(platformName)
			if err != nil {
				return err
			}
			if err := validation.ValidateWorkerCount(numWorkers); err != nil {
				return err
			}
			var memberID int64
			if memberIDText != "" {
				if memberID, err = validation.ParseMemberID(memberIDText); err != nil {
					return err
				}
			}
			for _, name := range args {
				if err := validation.ValidateBungieName(name); err != nil {
					log.Error().Str("name", name).Msg("Invalid Bungie name")
					return err
				}
			}

			a, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer a.close()
			return runSearch(cmd, a.api, platform, args, numWorkers, memberID)
		},
	}

	cmd.Flags().StringVarP(&platformName, "platform", "p", "all",
		"Platform to search ["+strings.Join(validation.PlatformNames, ", ")+"]")
	cmd.Flags().IntVarP(&numWorkers, "workers", "w", 5,
		fmt.Sprintf("Number of concurrent searches [%d-%d]", validation.MinWorkers, validation.MaxWorkers))
	cmd.Flags().StringVar(&memberIDText, "member-id", "", "Only show the membership with this id")

	return cmd
}

// runSearch queries every name concurrently and prints one table of matches.
// Names whose search failed are listed on stderr and the first failure is
// returned after the table. A non-zero memberID keeps only that membership.
func runSearch(cmd *cobra.Command, api playerSearcher, platform client.MembershipType, names []string, numWorkers int, memberID int64) error {
	log.Info().Int("names", len(names)).Str("platform", platform.String()).Msg("Searching for players...")

	results, errs := pool.Map(cmd.Context(), names, numWorkers,
		func(ctx context.Context, name string) ([]client.UserInfoCard, error) {
			return api.SearchPlayer(ctx, platform, name)
		})

	var rows [][]string
	for i, cards := range results {
		if errs[i] != nil {
			errs[i] = classifySearchError(errs[i])
			cmd.PrintErrf("%s: %s\n", names[i], errs[i])
			continue
		}
		for _, card := range cards {
			if memberID != 0 && card.MembershipID != strconv.FormatInt(memberID, 10) {
				continue
			}
			rows = append(rows, []string{
				names[i],
				card.BungieName(),
				card.MembershipType.String(),
				card.MembershipID,
				crossSave(card),
			})
		}
	}

	if len(rows) == 0 {
		if err := pool.FirstError(errs); err != nil {
			return err
		}
		cmd.Println("No players found.")
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Query", "Bungie Name", "Platform", "Membership ID", "Cross Save"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)
	table.AppendBulk(rows)
	table.Render()

	return pool.FirstError(errs)
}

// classifySearchError turns the context errors the pool reports for
// unstarted searches into transport failures. Client failures pass through.
func classifySearchError(err error) error {
	return dclierr.FromTransport(err)
}

func crossSave(card client.UserInfoCard) string {
	if card.CrossSaveOverride == 0 {
		return "-"
	}
	return card.CrossSaveOverride.String()
}
