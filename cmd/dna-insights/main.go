// dna-insights is the operator CLI: profile management, genotype file
// imports, ClinVar reference syncs and insight inspection, all against the
// local embedded database.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	kingpin "gopkg.in/alecthomas/kingpin.v2"

	"github.com/variantlab/dnainsights/internal/clinvar"
	"github.com/variantlab/dnainsights/internal/config"
	"github.com/variantlab/dnainsights/internal/importer"
	"github.com/variantlab/dnainsights/internal/insights"
	"github.com/variantlab/dnainsights/internal/models"
	"github.com/variantlab/dnainsights/internal/progress"
	"github.com/variantlab/dnainsights/internal/security"
	"github.com/variantlab/dnainsights/internal/store"
)

var (
	app        = kingpin.New("dna-insights", "local-first consumer genotype ingestion and insights")
	configPath = app.Flag("config", "config file path (default ~/.dna-insights/config.yaml)").String()

	profileCmd    = app.Command("profile", "manage local profiles")
	profileCreate = profileCmd.Command("create", "create a profile")
	createName    = profileCreate.Flag("name", "display name").Required().String()
	createNotes   = profileCreate.Flag("notes", "free-form notes").String()

	profileList = profileCmd.Command("list", "list profiles with their last import")

	profileRename = profileCmd.Command("rename", "rename a profile")
	renameID      = profileRename.Flag("id", "profile id").Required().String()
	renameName    = profileRename.Flag("name", "new display name").Required().String()

	profileDelete = profileCmd.Command("delete", "delete a profile and all its data")
	deleteID      = profileDelete.Flag("id", "profile id").Required().String()

	importCmd     = app.Command("import", "import an AncestryDNA raw data file")
	importProfile = importCmd.Flag("profile", "profile id").Required().String()
	importFile    = importCmd.Arg("file", "raw data file (.txt or .zip)").Required().ExistingFile()
	importMode    = importCmd.Flag("mode", "curated or full").Default("curated").Enum("curated", "full")
	importMember  = importCmd.Flag("member", "zip member to use when the archive holds several .txt files").String()

	clinvarCmd  = app.Command("clinvar", "ClinVar reference operations")
	clinvarSync = clinvarCmd.Command("sync", "sync the reference tables from a ClinVar source")
	syncSource  = clinvarSync.Arg("source", "ClinVar file or prebuilt cache store").Required().ExistingFile()
	syncCache   = clinvarSync.Flag("from-cache", "treat the source as a prebuilt cache store").Bool()

	insightsCmd  = app.Command("insights", "show the latest insight results for a profile")
	insightsProf = insightsCmd.Flag("profile", "profile id").Required().String()

	variantCmd  = app.Command("variant", "look up one rsID for a profile")
	variantProf = variantCmd.Flag("profile", "profile id").Required().String()
	variantRsID = variantCmd.Arg("rsid", "rsID to look up").Required().String()
)

func main() {
	app.UsageTemplate(kingpin.CompactUsageTemplate).Version("1.0.0")
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := store.Open(ctx, cfg.DatabasePath(), cfg.Debug, logger)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	if err := dispatch(ctx, command, cfg, db, logger); err != nil {
		if errors.Is(err, progress.ErrCancelled) {
			logger.Warn("operation cancelled")
			os.Exit(130)
		}
		logger.Fatal("command failed", zap.Error(err))
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath != "" {
		return config.Load(*configPath)
	}
	return config.LoadDefault()
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func dispatch(ctx context.Context, command string, cfg *config.Config, db *bun.DB, logger *zap.Logger) error {
	switch command {
	case profileCreate.FullCommand():
		return runProfileCreate(ctx, db)
	case profileList.FullCommand():
		return runProfileList(ctx, db)
	case profileRename.FullCommand():
		return store.RenameProfile(ctx, db, *renameID, *renameName)
	case profileDelete.FullCommand():
		return store.DeleteProfile(ctx, db, *deleteID)
	case importCmd.FullCommand():
		return runImport(ctx, cfg, db, logger)
	case clinvarSync.FullCommand():
		return runClinVarSync(ctx, cfg, db, logger)
	case insightsCmd.FullCommand():
		return runInsightsShow(ctx, db)
	case variantCmd.FullCommand():
		return runVariantLookup(ctx, db)
	}
	return fmt.Errorf("unknown command %q", command)
}

func runProfileCreate(ctx context.Context, db *bun.DB) error {
	var notes *string
	if *createNotes != "" {
		notes = createNotes
	}
	profile, err := store.CreateProfile(ctx, db, *createName, notes)
	if err != nil {
		return err
	}
	fmt.Printf("created profile %s (%s)\n", profile.ID, profile.DisplayName)
	return nil
}

func runProfileList(ctx context.Context, db *bun.DB) error {
	profiles, err := store.ListProfiles(ctx, db)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		fmt.Println("no profiles")
		return nil
	}
	for _, p := range profiles {
		lastImport := "never imported"
		if p.LastImportedAt != nil {
			lastImport = "last import " + humanize.Time(*p.LastImportedAt)
		}
		fmt.Printf("%s  %-20s  %s\n", p.ID, p.DisplayName, lastImport)
	}
	return nil
}

// cancelToken wires SIGINT/SIGTERM to a cooperative cancellation flag.
func cancelToken() *progress.Flag {
	var flag progress.Flag
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		flag.Cancel()
	}()
	return &flag
}

func percentBar() (*pb.ProgressBar, progress.Func) {
	bar := pb.Full.Start(100)
	return bar, func(percent int, units int64, etaSeconds float64) {
		bar.SetCurrent(int64(percent))
	}
}

func loadEncryptor(cfg *config.Config) (security.Encryptor, error) {
	enc := security.NewManager(cfg.Encryption.Enabled)
	if !cfg.Encryption.Enabled {
		return enc, nil
	}
	passphrase := os.Getenv("DNA_INSIGHTS_PASSPHRASE")
	if passphrase == "" {
		return nil, errors.New("encryption is enabled: set DNA_INSIGHTS_PASSPHRASE")
	}
	salt, err := base64.StdEncoding.DecodeString(cfg.Encryption.Salt)
	if err != nil || len(salt) == 0 {
		return nil, errors.New("encryption salt missing or invalid in config")
	}
	if err := enc.Unlock(passphrase, salt); err != nil {
		return nil, err
	}
	return enc, nil
}

func runImport(ctx context.Context, cfg *config.Config, db *bun.DB, logger *zap.Logger) error {
	manifest, modules, err := insights.Load(cfg.KnowledgeBaseDir)
	if err != nil {
		return fmt.Errorf("load knowledge base: %w", err)
	}
	enc, err := loadEncryptor(cfg)
	if err != nil {
		return err
	}

	// Surface imports whose process died mid-flight before starting a new one.
	orphans, err := store.OrphanImports(ctx, db)
	if err != nil {
		return err
	}
	for _, orphan := range orphans {
		logger.Warn("previous import never finished",
			zap.String("import_id", orphan.ID),
			zap.Time("started_at", orphan.ImportedAt))
	}

	bar, onProgress := percentBar()
	defer bar.Finish()

	imp := importer.New(db, logger)
	summary, err := imp.ImportAncestryFile(ctx, importer.GenotypeImportRequest{
		ProfileID:  *importProfile,
		FilePath:   *importFile,
		ZipMember:  *importMember,
		Mode:       models.ImportMode(*importMode),
		RawDir:     cfg.RawFileDir(*importProfile),
		Encryptor:  enc,
		Modules:    modules,
		KBVersion:  manifest.KBVersion,
		OptIn:      cfg.OptIn.Categories(),
		OnProgress: onProgress,
		Token:      cancelToken(),
	})
	if err != nil {
		return err
	}
	bar.SetCurrent(100)
	bar.Finish()

	fmt.Printf("import %s complete: %s markers, call rate %.2f%%, %d insights\n",
		summary.Import.ID,
		humanize.Comma(summary.QC.TotalMarkers),
		summary.QC.CallRate*100,
		summary.InsightCount)
	for _, warning := range summary.QC.Warnings {
		fmt.Println("warning:", warning)
	}
	return nil
}

func runClinVarSync(ctx context.Context, cfg *config.Config, db *bun.DB, logger *zap.Logger) error {
	filter, err := store.AllRsIDs(ctx, db)
	if err != nil {
		return err
	}

	bar, onProgress := percentBar()
	defer bar.Finish()

	req := importer.SyncRequest{
		Filter:     filter,
		OnProgress: onProgress,
		Token:      cancelToken(),
	}

	imp := importer.New(db, logger)
	var result *importer.SyncResult
	if *syncCache || strings.HasSuffix(*syncSource, ".sqlite3") {
		result, err = imp.ImportClinVarCache(ctx, *syncSource, req)
	} else {
		result, err = imp.ImportClinVarSnapshot(ctx, *syncSource, req)
	}
	if err != nil {
		return err
	}
	bar.Finish()

	if result.Skipped {
		fmt.Printf("sync skipped: %s\n", result.Reason)
		return nil
	}
	fmt.Printf("sync complete: %s variants merged (source %s)\n",
		humanize.Comma(result.VariantCount), result.FileHashSHA256[:12])
	return nil
}

func runInsightsShow(ctx context.Context, db *bun.DB) error {
	latest, err := store.LatestInsights(ctx, db, *insightsProf)
	if err != nil {
		return err
	}
	if len(latest) == 0 {
		fmt.Println("no insights yet; run an import first")
		return nil
	}
	for _, row := range latest {
		var result insights.Result
		if err := json.Unmarshal([]byte(row.ResultJSON), &result); err != nil {
			return fmt.Errorf("decode insight %s: %w", row.ModuleID, err)
		}
		fmt.Printf("[%s] %s\n  %s\n", result.Category, result.DisplayName, result.Summary)
		if result.Suggestion != nil {
			fmt.Printf("  suggestion: %s\n", *result.Suggestion)
		}
	}
	return nil
}

func runVariantLookup(ctx context.Context, db *bun.DB) error {
	row, err := store.GetVariant(ctx, db, *variantProf, *variantRsID)
	if err != nil {
		return err
	}
	genotypeText := "missing call"
	if row.Genotype != nil {
		genotypeText = *row.Genotype
	}
	fmt.Printf("%s  chr%s:%d  %s\n", row.RsID, row.Chrom, row.Pos, genotypeText)

	variant, err := store.GetClinVarVariant(ctx, db, *variantRsID)
	if errors.Is(err, store.ErrNotFound) {
		fmt.Println("no ClinVar reference entry")
		return nil
	}
	if err != nil {
		return err
	}
	c := clinvar.Classify(variant.ClinicalSignificance, variant.ReviewStatus)
	fmt.Printf("ClinVar: %s (%s confidence", variant.ClinicalSignificance, c.Confidence)
	if c.Conflict {
		fmt.Printf(", conflicting interpretations reported")
	}
	fmt.Printf(")\n  review: %s\n", variant.ReviewStatus)
	if variant.Conditions != "" {
		fmt.Printf("  conditions: %s\n", variant.Conditions)
	}
	return nil
}
