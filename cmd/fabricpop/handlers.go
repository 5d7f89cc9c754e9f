package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elonfeng/fabricpop/internal/config"
	"github.com/elonfeng/fabricpop/internal/logging"
	"github.com/elonfeng/fabricpop/internal/scheduler"
	"github.com/elonfeng/fabricpop/internal/store"
	"github.com/elonfeng/fabricpop/pkg/catalog"
	"github.com/elonfeng/fabricpop/pkg/igdbproxy"
	"github.com/elonfeng/fabricpop/pkg/publish"
	"github.com/elonfeng/fabricpop/pkg/rating"
	"github.com/elonfeng/fabricpop/pkg/review"
	"github.com/elonfeng/fabricpop/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// buildIGDB returns the game catalog client and, when Twitch credentials are
// configured, the token source it shares with the proxy handler.
func buildIGDB(cfg *config.Config) (*catalog.IGDB, *igdbproxy.TokenSource) {
	c := cfg.Catalog.IGDB
	if !c.HasCredentials() {
		return catalog.NewIGDBProxy(c.ProxyURL, c.Limit), nil
	}
	tokens := igdbproxy.NewTokenSource(context.Background(), c.ClientID, c.ClientSecret, c.TokenURL)
	return catalog.NewIGDB(c.BaseURL, c.ClientID, tokens, c.Limit), tokens
}

func buildCatalog(cfg *config.Config) (*catalog.Catalog, *igdbproxy.TokenSource) {
	cat := catalog.New()
	tmdb := catalog.NewTMDB(cfg.Catalog.TMDB.BaseURL, cfg.Catalog.TMDB.ReadToken, cfg.Catalog.TMDB.Language)
	cat.Register(tmdb, "", review.MediaMovie, review.MediaShow)

	igdb, tokens := buildIGDB(cfg)
	cat.Register(igdb, review.MediaGame)
	return cat, tokens
}

func buildPublishManager(cfg *config.Config) *publish.Manager {
	var publishers []publish.Publisher

	if cfg.Publish.Webhook.Enabled && cfg.Publish.Webhook.URL != "" {
		publishers = append(publishers, publish.NewWebhook(cfg.Publish.Webhook.URL, cfg.Publish.Webhook.Secret))
	}
	if cfg.Publish.Slack.Enabled && cfg.Publish.Slack.WebhookURL != "" {
		publishers = append(publishers, publish.NewSlack(cfg.Publish.Slack.WebhookURL))
	}
	if cfg.Publish.Discord.Enabled && cfg.Publish.Discord.WebhookURL != "" {
		publishers = append(publishers, publish.NewDiscord(cfg.Publish.Discord.WebhookURL))
	}

	return publish.NewManager(publishers)
}

type reviewOpts struct {
	mediaType string
	mediaID   string
	title     string
	year      int
	metadata  map[string]string
	value     string
	scale     string
	url       string
	name      string
	address   string
	notes     string
	format    string
	save      bool
}

// fields converts flag values into builder input. year is only set when the
// flag was given.
func (o reviewOpts) fields(yearSet bool) review.Fields {
	f := review.Fields{
		MediaType:       review.MediaType(o.mediaType),
		MediaID:         review.ExternalID(o.mediaID),
		MediaTitle:      o.title,
		RatingValue:     rating.Raw(o.value),
		RatingScale:     o.scale,
		ReviewURL:       o.url,
		ReviewerName:    o.name,
		ReviewerAddress: o.address,
		Notes:           o.notes,
	}
	if yearSet {
		y := o.year
		f.MediaYear = &y
	}
	if len(o.metadata) > 0 {
		f.MediaMetadata = make(map[string]any, len(o.metadata))
		for k, v := range o.metadata {
			f.MediaMetadata[k] = v
		}
	}
	return f
}

func readFields(path string) (review.Fields, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return review.Fields{}, fmt.Errorf("read fields: %w", err)
	}

	var f review.Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return review.Fields{}, fmt.Errorf("parse fields: %w", err)
	}
	return f, nil
}

// renderReview writes r in the requested output format.
func renderReview(w io.Writer, r *review.Review, format string) error {
	switch strings.ToLower(format) {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(r)
	case "compact":
		b, err := review.ToCompact(r).Bytes()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "summary":
		_, err := fmt.Fprintln(w, review.Summary(r))
		return err
	}
	return fmt.Errorf("unknown format %q (want json, compact or summary)", format)
}

func runReview(cmd *cobra.Command, opts reviewOpts, fieldsFile string) error {
	var f review.Fields
	if fieldsFile != "" {
		var err error
		if f, err = readFields(fieldsFile); err != nil {
			return err
		}
	} else {
		f = opts.fields(cmd.Flags().Changed("year"))
	}

	r, err := review.Build(f)
	if err != nil {
		return err
	}

	if opts.save {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		db, err := store.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer db.Close()

		rec, created, err := db.SaveReview(context.Background(), r)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(os.Stderr, "saved review %s (digest %s)\n", rec.ID, rec.Digest[:12])
		} else {
			fmt.Fprintf(os.Stderr, "review already stored as %s (digest %s)\n", rec.ID, rec.Digest[:12])
		}
	}

	return renderReview(os.Stdout, r, opts.format)
}

func runScales(jsonOutput bool) error {
	var infos []rating.ScaleInfo
	for _, sc := range rating.Scales() {
		if info, ok := rating.Describe(sc); ok {
			infos = append(infos, info)
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCALE\tLABEL\tINPUT")
	for _, info := range infos {
		input := strings.Join(info.Options, " ")
		if info.Bounds != nil {
			input = fmt.Sprintf("%g to %g, step %g", info.Bounds.Min, info.Bounds.Max, info.Bounds.Step)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.Scale, info.Label, input)
	}
	return w.Flush()
}

func runClassify(raw string) error {
	info := review.ClassifyURL(raw)
	if !info.Valid {
		return errors.New(info.Error)
	}
	fmt.Println(info.Platform)
	return nil
}

func runSearch(args []string, mediaType string, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	t := review.MediaType(strings.ToLower(mediaType))
	if t != "" && !t.Valid() {
		return fmt.Errorf("%w %q", review.ErrInvalidMediaType, mediaType)
	}

	cat, _ := buildCatalog(cfg)
	refs, err := cat.Search(context.Background(), strings.Join(args, " "), t)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(refs)
	}

	if len(refs) == 0 {
		fmt.Println("no results")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tID\tTITLE\tYEAR")
	for _, ref := range refs {
		year := "TBA"
		if ref.Year != nil {
			year = strconv.Itoa(*ref.Year)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ref.Type, ref.ID, ref.Title, year)
	}
	return w.Flush()
}

func runImport(feeds []string, dryRun bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(feeds) == 0 {
		feeds = cfg.Letterboxd.Feeds
	}
	if len(feeds) == 0 {
		return errors.New("no feeds given and letterboxd.feeds is empty")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	importer := catalog.NewLetterboxd(cfg.Letterboxd.ReviewerAddress, logger)
	ctx := context.Background()

	if dryRun {
		for _, feed := range feeds {
			entries, err := importer.Import(ctx, feed)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", feed, err)
				continue
			}
			for _, f := range entries {
				r, err := review.Build(f)
				if err != nil {
					fmt.Fprintf(os.Stderr, "  skip %q: %v\n", f.MediaTitle, err)
					continue
				}
				fmt.Println(review.Summary(r))
				fmt.Println()
			}
		}
		return nil
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	sched := scheduler.New(db, nil, importer, feeds, nil, 0, 0, logger)
	saved := sched.ImportFeeds(ctx)
	fmt.Fprintf(os.Stderr, "imported %d reviews from %d feeds\n", saved, len(feeds))
	return nil
}

func runList(mediaType, platform string, unpublished bool, limit int, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	recs, err := db.ListReviews(ctx, store.ListOpts{
		MediaType:   review.MediaType(mediaType),
		Platform:    review.Platform(platform),
		Unpublished: unpublished,
		Limit:       limit,
	})
	if err != nil {
		return fmt.Errorf("list reviews: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		fmt.Println("no reviews found (try: fabricpop review --save or fabricpop import)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tTITLE\tRATING\tPLATFORM\tCREATED\tPUBLISHED")
	for _, rec := range recs {
		r := rec.Review
		published := "-"
		if rec.PublishedAt != nil {
			published = humanize.Time(*rec.PublishedAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s/5 (%d%%)\t%s\t%s\t%s\n",
			rec.ID[:8], r.Media.Type, r.Media.Title, r.Rating.Stars5, r.Rating.Percentage,
			r.Link.Platform, humanize.Time(r.Metadata.CreatedAt), published)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	counts, err := db.CountByPlatform(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, platformTotals(counts))
	return nil
}

// platformTotals renders per-platform counts, largest first.
func platformTotals(counts map[review.Platform]int) string {
	platforms := make([]review.Platform, 0, len(counts))
	total := 0
	for p, n := range counts {
		platforms = append(platforms, p)
		total += n
	}
	sort.Slice(platforms, func(i, j int) bool {
		if counts[platforms[i]] != counts[platforms[j]] {
			return counts[platforms[i]] > counts[platforms[j]]
		}
		return platforms[i] < platforms[j]
	})

	parts := make([]string, len(platforms))
	for i, p := range platforms {
		parts[i] = fmt.Sprintf("%s: %s", p, humanize.Comma(int64(counts[p])))
	}
	return fmt.Sprintf("total: %s reviews (%s)", humanize.Comma(int64(total)), strings.Join(parts, ", "))
}

func runShow(id, format string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	rec, err := db.GetReview(context.Background(), id)
	if err != nil {
		return fmt.Errorf("review %s: %w", id, err)
	}
	return renderReview(os.Stdout, rec.Review, format)
}

func runPublish() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mgr := buildPublishManager(cfg)
	if !mgr.HasPublishers() {
		return errors.New("no publishers configured (set publish.webhook, publish.slack or publish.discord)")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	sched := scheduler.New(db, nil, nil, nil, mgr, 0, 0, logger)
	n := sched.PublishPending(context.Background())
	fmt.Fprintf(os.Stderr, "published %d reviews\n", n)
	return nil
}

func newServer(cfg *config.Config, db store.Store, port int, logger *zap.Logger) *server.Server {
	cat, tokens := buildCatalog(cfg)

	var igdb *igdbproxy.Handler
	if tokens != nil {
		igdb = igdbproxy.NewHandler(cfg.Catalog.IGDB.BaseURL, cfg.Catalog.IGDB.ClientID, tokens, logger)
	}

	if port == 0 {
		port = cfg.Server.Port
	}
	return server.New(db, cat, server.Options{
		Port:           port,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IGDB:           igdb,
		Logger:         logger,
	})
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return newServer(cfg, db, port, logger).ListenAndServe(ctx)
}

func runProxy(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c := cfg.Catalog.IGDB
	if !c.HasCredentials() {
		return errors.New("TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET are required")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tokens := igdbproxy.NewTokenSource(ctx, c.ClientID, c.ClientSecret, c.TokenURL)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           igdbproxy.NewHandler(c.BaseURL, c.ClientID, tokens, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("igdb proxy listening",
		zap.String("addr", srv.Addr),
		zap.String("endpoint", fmt.Sprintf("http://localhost:%d%s", port, igdbproxy.PathPrefix)))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(db, nil,
		catalog.NewLetterboxd(cfg.Letterboxd.ReviewerAddress, logger),
		cfg.Letterboxd.Feeds,
		buildPublishManager(cfg),
		cfg.Schedule.ParsePublishInterval(),
		cfg.Schedule.ParseImportInterval(),
		logger,
	)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("scheduler", zap.Error(err))
		}
	}()

	return newServer(cfg, db, port, logger).ListenAndServe(ctx)
}
