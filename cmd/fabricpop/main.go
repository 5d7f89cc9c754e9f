package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fabricpop",
		Short:         "Build, store and publish normalized media reviews",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(reviewCmd())
	root.AddCommand(scalesCmd())
	root.AddCommand(classifyCmd())
	root.AddCommand(searchCmd())
	root.AddCommand(importCmd())
	root.AddCommand(listCmd())
	root.AddCommand(showCmd())
	root.AddCommand(publishCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(proxyCmd())
	root.AddCommand(runCmd())

	return root
}

func reviewCmd() *cobra.Command {
	var (
		opts       reviewOpts
		fieldsFile string
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Build a review record from flags or a JSON fields file",
		Example: `  fabricpop review --type movie --id 603 --title "The Matrix" --year 1999 \
      --rating 4.5 --scale stars_5 --url https://medium.com/@neo/matrix --format summary`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, opts, fieldsFile)
		},
	}

	f := cmd.Flags()
	f.StringVar(&fieldsFile, "fields", "", `read review fields as JSON from a file ("-" for stdin)`)
	f.StringVar(&opts.mediaType, "type", "", "media type: movie, show or game")
	f.StringVar(&opts.mediaID, "id", "", "external catalog ID")
	f.StringVar(&opts.title, "title", "", "media title")
	f.IntVar(&opts.year, "year", 0, "release year")
	f.StringToStringVar(&opts.metadata, "meta", nil, "extra media metadata (key=value)")
	f.StringVar(&opts.value, "rating", "", "rating value as entered")
	f.StringVar(&opts.scale, "scale", "", "rating scale (stars_5, stars_10, numeric_10, numeric_100, letter_grade, float)")
	f.StringVar(&opts.url, "url", "", "link to the full review")
	f.StringVar(&opts.name, "name", "", "reviewer display name")
	f.StringVar(&opts.address, "address", "", "reviewer wallet address")
	f.StringVar(&opts.notes, "notes", "", "free-form notes")
	f.StringVar(&opts.format, "format", "json", "output format: json, compact or summary")
	f.BoolVar(&opts.save, "save", false, "store the review in the database")
	return cmd
}

func scalesCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "scales",
		Short: "List supported rating scales",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScales(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>",
		Short: "Detect the platform of a review URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(args[0])
		},
	}
}

func searchCmd() *cobra.Command {
	var (
		mediaType  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the movie, TV and game catalogs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(args, mediaType, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&mediaType, "type", "", "media type: movie, show or game (default: movies and shows)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func importCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import [feed-url...]",
		Short: "Import rated diary entries from Letterboxd RSS feeds",
		Long:  "Import rated diary entries from the given feeds, or from letterboxd.feeds in the config when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(args, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print reviews without storing them")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		mediaType   string
		platform    string
		unpublished bool
		limit       int
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(mediaType, platform, unpublished, limit, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&mediaType, "type", "", "filter by media type")
	cmd.Flags().StringVar(&platform, "platform", "", "filter by review platform")
	cmd.Flags().BoolVar(&unpublished, "unpublished", false, "only reviews not yet published")
	cmd.Flags().IntVar(&limit, "limit", 20, "max reviews to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func showCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(args[0], format)
		},
	}

	cmd.Flags().StringVar(&format, "format", "summary", "output format: json, compact or summary")
	return cmd
}

func publishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Publish stored reviews that have not been published yet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish()
		},
	}
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func proxyCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Start a standalone IGDB proxy holding the Twitch credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProxy(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 3000, "proxy port")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
