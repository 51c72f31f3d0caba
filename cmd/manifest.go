package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/habedi/dcli/db"
	"github.com/habedi/dcli/manifest"
	"github.com/habedi/dcli/pkg/dclierr"
	"github.com/habedi/dcli/pkg/hasher"
	"github.com/habedi/dcli/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// manifestManager is the part of manifest.Manager the commands use.
type manifestManager interface {
	Sync(ctx context.Context, force bool) (manifest.SyncResult, error)
	Info(ctx context.Context) (*db.ManifestRecord, error)
	Verify(ctx context.Context) (bool, error)
	Lookup(ctx context.Context, table string, hash uint32) ([]byte, error)
	Digest(ctx context.Context, algo string) (string, error)
	Remove(ctx context.Context) (*db.ManifestRecord, error)
}

func manifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Manage the local copy of the Destiny 2 manifest",
		Args:  parameterArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(
		manifestSyncCmd(),
		manifestInfoCmd(),
		manifestVerifyCmd(),
		manifestLookupCmd(),
		manifestHashCmd(),
		manifestClearCmd(),
	)

	return cmd
}

// withManager opens the application with its database and runs fn against the manifest manager.
func withManager(cmd *cobra.Command, fn func(m manifestManager) error) error {
	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a.manager)
}

func manifestSyncCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download the current manifest if the local copy is out of date",
		Args:  parameterArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(m manifestManager) error {
				return runManifestSync(cmd, m, force)
			})
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Download and install even if the local copy is current")
	return cmd
}

func runManifestSync(cmd *cobra.Command, m manifestManager, force bool) error {
	res, err := m.Sync(cmd.Context(), force)
	if err != nil {
		return err
	}
	if !res.Updated {
		cmd.Printf("Manifest %s is already up to date.\n", res.Record.Version)
		return nil
	}
	cmd.Printf("Manifest %s installed at %s (%s).\n", res.Record.Version, res.Record.Path, formatBytes(res.Record.Bytes))
	return nil
}

func manifestInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the installed manifest",
		Args:  parameterArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(m manifestManager) error {
				return runManifestInfo(cmd, m)
			})
		},
	}
}

func runManifestInfo(cmd *cobra.Command, m manifestManager) error {
	rec, err := m.Info(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Println("Manifest Information:")
	cmd.Printf("Version: %s\n", rec.Version)
	cmd.Printf("Language: %s\n", rec.Language)
	cmd.Printf("Path: %s\n", rec.Path)
	cmd.Printf("Download size: %s\n", formatBytes(rec.Bytes))
	cmd.Printf("Checksum: %s\n", rec.Checksum)
	cmd.Printf("Updated: %s\n", rec.UpdatedAt.Format(time.RFC3339))
	return nil
}

func manifestVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the installed manifest against its recorded checksum",
		Args:  parameterArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(m manifestManager) error {
				return runManifestVerify(cmd, m)
			})
		},
	}
}

func runManifestVerify(cmd *cobra.Command, m manifestManager) error {
	ok, err := m.Verify(cmd.Context())
	if err != nil {
		return err
	}
	if !ok {
		log.Error().Msg("Manifest checksum mismatch")
		return dclierr.Unknown("manifest checksum mismatch; run `dcli manifest sync --force`")
	}
	cmd.Println("Manifest checksum OK.")
	return nil
}

func manifestLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "lookup <table> <hash>",
		Short:   "Print a definition from the installed manifest",
		Example: "  dcli manifest lookup DestinyInventoryItemDefinition 3628991658",
		Args:    parameterArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := validation.ParseItemHash(args[1])
			if err != nil {
				return err
			}
			return withManager(cmd, func(m manifestManager) error {
				return runManifestLookup(cmd, m, args[0], hash)
			})
		},
	}
}

func runManifestLookup(cmd *cobra.Command, m manifestManager, table string, hash uint32) error {
	raw, err := m.Lookup(cmd.Context(), table, hash)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return dclierr.FromParse(err)
	}
	cmd.Println(out.String())
	return nil
}

func manifestHashCmd() *cobra.Command {
	var algo string
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print a digest of the installed manifest",
		Args:  parameterArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !hasher.IsValidAlgorithm(algo) {
				cmd.PrintErrf("unsupported algorithm %q\n", algo)
				return dclierr.ParameterParse()
			}
			return withManager(cmd, func(m manifestManager) error {
				return runManifestHash(cmd, m, algo)
			})
		},
	}
	cmd.Flags().StringVarP(&algo, "algo", "a", hasher.Default,
		"Hash algorithm ["+strings.Join(hasher.Algorithms, ", ")+"]")
	return cmd
}

func runManifestHash(cmd *cobra.Command, m manifestManager, algo string) error {
	sum, err := m.Digest(cmd.Context(), algo)
	if err != nil {
		return err
	}
	cmd.Printf("%s: %s\n", strings.ToLower(algo), sum)
	return nil
}

func manifestClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the installed manifest and its record",
		Args:  parameterArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withManager(cmd, func(m manifestManager) error {
				return runManifestClear(cmd, m)
			})
		},
	}
}

func runManifestClear(cmd *cobra.Command, m manifestManager) error {
	rec, err := m.Remove(cmd.Context())
	if err != nil {
		return err
	}
	cmd.Printf("Removed manifest %s (%s).\n", rec.Version, rec.Path)
	return nil
}
