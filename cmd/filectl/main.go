package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"fileservices/internal/config"
	"fileservices/internal/database"
	"fileservices/internal/domain/files"
	"fileservices/internal/storage"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// filectl works against the configured backend directly, the same way the
// API does, so it shares naming and placement rules.
type app struct {
	service *files.Service
	db      *gorm.DB
}

func (a *app) Close() {
	if a.db == nil {
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// newApp loads the configuration and opens the backend. The caller must defer app.Close().
func newApp(ctx context.Context) (*app, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	a := &app{}
	var journal files.Journal
	if cfg.DatabaseURL != "" {
		a.db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := files.Migrate(a.db); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		journal = files.NewRepository(a.db)
	}

	a.service = files.NewService(store, journal, nil, cfg.MaxUploadSize)
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "filectl",
	Short:        "Manage stored files and images",
	SilenceUsage: true,
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored files",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		imagesOnly, _ := cmd.Flags().GetBool("images")
		if imagesOnly {
			images, err := a.service.ListImages(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing images: %w", err)
			}
			for _, name := range images {
				fmt.Println(name)
			}
			return nil
		}

		listing, err := a.service.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing files: %w", err)
		}
		for _, name := range listing.Uploads {
			fmt.Printf("%s\t%s\n", storage.KindUpload, name)
		}
		for _, name := range listing.Images {
			fmt.Printf("%s\t%s\n", storage.KindImage, name)
		}
		return nil
	},
}

var putCmd = &cobra.Command{
	Use:   "put <path>",
	Short: "Upload a local file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat %s: %w", args[0], err)
		}

		contentType, _ := cmd.Flags().GetString("type")
		if contentType == "" {
			contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(args[0])))
		}

		res, err := a.service.Upload(cmd.Context(), files.UploadInput{
			OriginalName: filepath.Base(args[0]),
			ContentType:  contentType,
			Size:         info.Size(),
			Body:         f,
		})
		if err != nil {
			return fmt.Errorf("uploading %s: %w", args[0], err)
		}

		fmt.Printf("Stored %s\n", res.Filename)
		fmt.Printf("Path:  %s\n", res.Path)
		fmt.Printf("URL:   %s\n", res.URL)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <filename>",
	Short: "Fetch a stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		image, _ := cmd.Flags().GetBool("image")
		open := a.service.OpenDownload
		if image {
			open = a.service.OpenImage
		}

		obj, err := open(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching %s: %w", args[0], err)
		}
		defer obj.Close()

		out := cmd.OutOrStdout()
		if path, _ := cmd.Flags().GetString("output"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating %s: %w", path, err)
			}
			defer f.Close()
			out = f
		}

		if _, err := io.Copy(out, obj); err != nil {
			return fmt.Errorf("writing %s: %w", args[0], err)
		}
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <filename>",
	Short: "Delete a stored file (generic copy first)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		kind, err := a.service.Delete(cmd.Context(), args[0])
		if errors.Is(err, files.ErrNotFound) {
			return fmt.Errorf("%s: not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("deleting %s: %w", args[0], err)
		}

		fmt.Printf("Deleted %s from %s\n", args[0], kind)
		return nil
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent upload and delete events",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		evs, err := a.service.Events(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("reading events: %w", err)
		}
		if len(evs) == 0 {
			fmt.Println("No events recorded.")
			return nil
		}
		for _, e := range evs {
			fmt.Printf("%s  %-8s %-7s %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Action, e.Kind, e.Filename)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().Bool("images", false, "List images only")
	rootCmd.AddCommand(putCmd)
	putCmd.Flags().StringP("type", "t", "", "Content type (defaults to the extension's type)")
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().Bool("image", false, "Fetch from the image store")
	getCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntP("limit", "n", 50, "Maximum number of events to show")
}
