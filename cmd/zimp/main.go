package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"zimp-go/internal/app"
	"zimp-go/internal/config"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a ZimpApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Import", "List").
func newApp(ctx context.Context, operation string) (*app.ZimpApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewZimpApp(ctx, cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// readPassphrase prompts on the terminal without echo.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("passphrase prompt needs a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:           "zimp",
	Short:         "Import zip archives into a document library",
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return app.LoadEnv()
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		ownerID, _ := cmd.Flags().GetString("owner-id")
		ownerName, _ := cmd.Flags().GetString("owner-name")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		if ownerID == "" {
			ownerID = uuid.New().String()
		}
		if ownerName == "" {
			ownerName = os.Getenv("USER")
		}

		cfg := config.NewConfig(ownerID, ownerName, defaults.BaseDir)
		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Owner ID: %s\n", ownerID)
		fmt.Printf("Base Dir: %s\n", defaults.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Owner:      %s (%s)\n", cfg.OwnerID, cfg.OwnerName)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Vault:      %s (%s)\n", cfg.Vaults[0].Name, cfg.Vaults[0].Type)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		fmt.Printf("Scratch:    %s\n", cfg.Staging.ScratchDir)
		return nil
	},
}

// encryption command
var encryptionCmd = &cobra.Command{
	Use:   "encryption",
	Short: "Manage encryption at rest",
}

var encryptionSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "SetupEncryption")
		if err != nil {
			return err
		}
		defer a.Close()

		pass, err := readPassphrase("New passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}

		if err := a.SetupEncryption(pass); err != nil {
			return fmt.Errorf("setting up encryption: %w", err)
		}
		fmt.Println("Encryption keys created.")
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import ARCHIVE",
	Short: "Import a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, _ := cmd.Flags().GetString("root")
		keep, _ := cmd.Flags().GetBool("keep-archive")

		a, err := newApp(cmd.Context(), "Import")
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Import(cmd.Context(), args[0], root, keep)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		var folders, files int
		for _, r := range result.Saved {
			if r.IsFolder() {
				folders++
			} else {
				files++
			}
		}
		fmt.Printf("Imported %d file(s) in %d folder(s)\n", files, folders)

		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  failed: %s: %s (%s)\n", e.Path, e.Message, e.Detail)
		}
		if len(result.Errors) > 0 {
			return fmt.Errorf("%d file(s) could not be imported", len(result.Errors))
		}
		return nil
	},
}

// size command
var sizeCmd = &cobra.Command{
	Use:   "size ARCHIVE",
	Short: "Show the uncompressed size of an archive's files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Size")
		if err != nil {
			return err
		}
		defer a.Close()

		size, err := a.Size(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (%d bytes)\n", humanize.IBytes(uint64(size)), size)
		return nil
	},
}

// ls command
var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List imported documents and folders",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "List")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.List(cmd.Context())
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No documents.")
			return nil
		}

		for _, r := range records {
			size := "-"
			if r.Metadata != nil {
				size = humanize.IBytes(uint64(r.Metadata.Size))
			}
			parent := r.ParentID
			if parent == "" {
				parent = "-"
			}
			fmt.Printf("%s  %-6s  %9s  %-36s  %s\n", r.ID, r.Kind, size, parent, r.Name)
		}
		return nil
	},
}

// cat command
var catCmd = &cobra.Command{
	Use:   "cat ID",
	Short: "Write a stored document to stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), "Cat")
		if err != nil {
			return err
		}
		defer a.Close()

		var pass string
		if a.NeedsPassphrase() {
			if pass, err = readPassphrase("Passphrase: "); err != nil {
				return err
			}
		}
		return a.Cat(cmd.Context(), args[0], pass, os.Stdout)
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View import history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), "History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(cmd.Context(), limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No imports recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				duration = op.FinishedAt.Time.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %s  %-8s  saved:%d failed:%d  %s  %s\n",
				op.ID,
				humanize.Time(op.StartedAt),
				op.Status,
				op.Saved,
				op.Failed,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().String("owner-id", "", "Owner ID (default: random UUID)")
	configInitCmd.Flags().String("owner-name", "", "Owner display name (default: $USER)")

	encryptionCmd.AddCommand(encryptionSetupCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(encryptionCmd)
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("root", "", "Attach the archive under this existing folder ID")
	importCmd.Flags().Bool("keep-archive", false, "Keep the staged copy of the archive after import")
	rootCmd.AddCommand(sizeCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(catCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of imports to show")
}
