// Package main provides the bactopo CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bactopo/internal/bacnet"
	"bactopo/internal/codec"
	"bactopo/internal/config"
	"bactopo/internal/diff"
	"bactopo/internal/domain"
	"bactopo/internal/repository"
	"bactopo/internal/repository/sqlite"
	"bactopo/internal/scanner"
)

// Version is the current bactopo version
var Version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:     "bactopo",
	Short:   "bactopo - BACnet/IP internetwork topology scanner",
	Long:    `bactopo discovers the devices, routers, and BBMDs of a BACnet/IP internetwork, records each scan as a graph snapshot, and diffs snapshots to show what changed.`,
	Version: Version,
}

var (
	configPath string
	dbPath     string

	scanNoSave bool

	pruneKeep int

	diffMerged bool
	diffOut    string

	exportOut string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE:  runInit,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one topology scan and store the snapshot",
	Long: `Run one full topology scan: adaptive Who-Is device discovery,
router discovery for every observed network number, and BBMD table
reads. The resulting graph is stored as a new snapshot and old
snapshots beyond the retention limit are pruned.

The previous snapshot, when one exists, only steers the Who-Is window
sizes; discovery results never carry over between scans.`,
	RunE: runScan,
}

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "Snapshot commands",
}

var snapshotsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots, newest first",
	RunE:  runSnapshotsList,
}

var snapshotsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest snapshots",
	RunE:  runSnapshotsPrune,
}

var diffCmd = &cobra.Command{
	Use:   "diff [snapshot-a] [snapshot-b]",
	Short: "Compare two snapshots",
	Long: `Compare two snapshots and report what appeared and what
disappeared. An argument naming an existing file is parsed as an
exported snapshot document; anything else is a stored snapshot ID.
With no arguments the two most recent snapshots are compared; with one
argument it is compared against the latest.

With --merged the output is one snapshot document holding the union of
both graphs, where every changed entry carries a provenance marker
naming the snapshot it came from.`,
	Args: cobra.MaximumNArgs(2),
	RunE: runDiff,
}

var exportCmd = &cobra.Command{
	Use:   "export [snapshot-id]",
	Short: "Write a snapshot as a JSON triple document",
	Long: `Write a stored snapshot to a file or stdout in the JSON triple
interchange form. With no argument the latest snapshot is exported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: search standard locations)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Snapshot database path (overrides config)")

	scanCmd.Flags().BoolVar(&scanNoSave, "no-save", false, "Run the scan without storing a snapshot")

	snapshotsPruneCmd.Flags().IntVar(&pruneKeep, "keep", 0, "Number of snapshots to retain (default: config snapshot_limit)")

	diffCmd.Flags().BoolVar(&diffMerged, "merged", false, "Emit the merged graph with provenance markers")
	diffCmd.Flags().StringVarP(&diffOut, "out", "o", "", "Write output to a file instead of stdout")

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write output to a file instead of stdout")

	snapshotsCmd.AddCommand(snapshotsListCmd)
	snapshotsCmd.AddCommand(snapshotsPruneCmd)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(snapshotsCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	log.SetFlags(log.LstdFlags)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective config, honoring the --config and
// --db overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, _, err = config.LoadFromPath(configPath)
	} else {
		var from string
		cfg, from, err = config.Load()
		if err == nil && from != "" {
			log.Printf("Using config %s", from)
		}
	}
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*sqlite.Store, error) {
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	return store, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default config to %s\n", path)
	fmt.Println("Set device.address to this host's CIDR address before scanning.")
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	opts, err := scanOptions(cfg)
	if err != nil {
		return err
	}

	prior, err := priorGraph(ctx, store)
	if err != nil {
		return err
	}

	result, scanErr := scanner.New(client, prior, opts).Scan(ctx)
	if scanErr != nil {
		// The partial graph is still reported, but never stored.
		log.Printf("Scan aborted: %v", scanErr)
		printScanSummary(result)
		return scanErr
	}
	printScanSummary(result)

	if scanNoSave {
		return nil
	}

	snap, err := store.Save(ctx, result.Graph, time.Now())
	if err != nil {
		return err
	}
	fmt.Printf("Stored snapshot %s\n", snap.ID)

	removed, err := store.Prune(ctx, cfg.Database.SnapshotLimit)
	if err != nil {
		return err
	}
	if removed > 0 {
		log.Printf("Pruned %d snapshots beyond retention limit %d", removed, cfg.Database.SnapshotLimit)
	}
	return nil
}

// newClient builds the BACnet/IP transport from config.
func newClient(cfg *config.Config) (bacnet.Client, error) {
	bc := bacnet.Config{Address: cfg.Device.Address}
	if cfg.Scan.ResponseWindow != nil {
		bc.ResponseWindow = cfg.Scan.ResponseWindow.Duration()
	}
	if cfg.Scan.ProbeTimeout != nil {
		bc.ProbeTimeout = cfg.Scan.ProbeTimeout.Duration()
	}
	if fr := cfg.Network.ForeignRegistration; fr != nil {
		bc.ForeignBBMD = fr.BBMD
		bc.TTL = uint16(fr.TTL.Duration() / time.Second)
	}
	return bacnet.NewUDPClient(bc)
}

func scanOptions(cfg *config.Config) (scanner.Options, error) {
	subnets, err := cfg.Subnets()
	if err != nil {
		return scanner.Options{}, err
	}
	bbmds, err := cfg.BBMDAddresses()
	if err != nil {
		return scanner.Options{}, err
	}
	return scanner.Options{
		LocalName:       cfg.Device.Name,
		LocalInstance:   cfg.Device.InstanceID,
		LocalAddress:    cfg.Device.Address,
		VendorID:        cfg.Device.VendorID,
		LowLimit:        cfg.Scan.LowLimit,
		HighLimit:       cfg.Scan.HighLimit,
		FullStepSize:    cfg.Scan.FullStepSize,
		EmptyStepSize:   cfg.Scan.EmptyStepSize,
		BBMDs:           bbmds,
		KnownSubnets:    subnets,
		SubnetPrefixLen: cfg.Network.SubnetPrefixLen,
	}, nil
}

// priorGraph loads the latest snapshot as the window-density hint. A
// missing or unreadable prior is not fatal; the scan just starts cold.
func priorGraph(ctx context.Context, store repository.Store) (*domain.Graph, error) {
	snap, err := store.Latest(ctx)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	g, err := snap.Graph()
	if err != nil {
		log.Printf("Ignoring unreadable prior snapshot %s: %v", snap.ID, err)
		return nil, nil
	}
	return g, nil
}

func printScanSummary(result *scanner.Result) {
	if result == nil || result.Graph == nil {
		return
	}
	fmt.Printf("Scan finished in %s: %d nodes\n", result.Duration.Round(time.Millisecond), result.Graph.Len())
	for addr, entries := range result.ForeignDeviceTables {
		fmt.Printf("  BBMD %s: %d foreign registrations\n", addr, len(entries))
	}
}

func runSnapshotsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.List(context.Background())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No snapshots stored.")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%s  %s  %d nodes\n", info.ID, info.TakenAt.Format(time.RFC3339), info.NodeCount)
	}
	return nil
}

func runSnapshotsPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	keep := effectiveKeep(cmd.Flags().Changed("keep"), pruneKeep, cfg.Database.SnapshotLimit)
	removed, err := store.Prune(context.Background(), keep)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d snapshots, kept at most %d\n", removed, keep)
	return nil
}

// loadDiffInput resolves one diff argument. An existing file is parsed
// as an exported snapshot document and validated; anything else is
// looked up as a stored snapshot ID.
func loadDiffInput(ctx context.Context, store repository.Store, arg string) (*repository.Snapshot, error) {
	if info, statErr := os.Stat(arg); statErr == nil && !info.IsDir() {
		f, err := os.Open(arg)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		triples, err := codec.NewJSONCodec().Parse(f)
		if err != nil {
			return nil, fmt.Errorf("snapshot file %s: %w", arg, err)
		}
		if _, err := domain.FromTriples(triples); err != nil {
			return nil, fmt.Errorf("snapshot file %s: %w", arg, err)
		}
		return &repository.Snapshot{ID: arg, TakenAt: info.ModTime(), Triples: triples}, nil
	}

	snap, err := store.Get(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", arg, err)
	}
	return snap, nil
}

// resolveDiffPair turns the diff arguments into two snapshots, older
// first. No arguments means the two most recent; one argument compares
// it against the latest.
func resolveDiffPair(ctx context.Context, store repository.Store, args []string) (*repository.Snapshot, *repository.Snapshot, error) {
	switch len(args) {
	case 2:
		a, err := loadDiffInput(ctx, store, args[0])
		if err != nil {
			return nil, nil, err
		}
		b, err := loadDiffInput(ctx, store, args[1])
		if err != nil {
			return nil, nil, err
		}
		return a, b, nil
	case 1:
		a, err := loadDiffInput(ctx, store, args[0])
		if err != nil {
			return nil, nil, err
		}
		b, err := store.Latest(ctx)
		if err != nil {
			return nil, nil, err
		}
		return a, b, nil
	default:
		infos, err := store.List(ctx)
		if err != nil {
			return nil, nil, err
		}
		if len(infos) < 2 {
			return nil, nil, fmt.Errorf("need at least 2 snapshots to diff, have %d", len(infos))
		}
		a, err := store.Get(ctx, infos[1].ID)
		if err != nil {
			return nil, nil, err
		}
		b, err := store.Get(ctx, infos[0].ID)
		if err != nil {
			return nil, nil, err
		}
		return a, b, nil
	}
}

func runDiff(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	a, b, err := resolveDiffPair(ctx, store, args)
	if err != nil {
		return err
	}

	result := diff.Compare(a.Triples, b.Triples)

	if diffMerged {
		merged := diff.Merged(result, a.ID, b.ID)
		return writeDocument(merged, diffOut)
	}

	fmt.Printf("Comparing %s (%s) against %s (%s)\n",
		shortID(a.ID), a.TakenAt.Format(time.RFC3339),
		shortID(b.ID), b.TakenAt.Format(time.RFC3339))
	if !result.Changed() {
		fmt.Printf("No changes: %d entries identical.\n", len(result.InBoth))
		return nil
	}
	fmt.Printf("%d unchanged, %d disappeared, %d appeared\n",
		len(result.InBoth), len(result.OnlyInA), len(result.OnlyInB))
	for _, tr := range result.OnlyInA {
		fmt.Printf("- %s %s %s\n", tr.Subject, tr.Predicate, tr.Object.Value())
	}
	for _, tr := range result.OnlyInB {
		fmt.Printf("+ %s %s %s\n", tr.Subject, tr.Predicate, tr.Object.Value())
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var snap *repository.Snapshot
	if len(args) == 1 {
		snap, err = store.Get(ctx, args[0])
	} else {
		snap, err = store.Latest(ctx)
	}
	if err != nil {
		return err
	}

	return writeDocument(snap.Triples, exportOut)
}

func writeDocument(triples []domain.Triple, path string) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return codec.NewJSONCodec().Export(triples, out)
}

// effectiveKeep picks the prune retention: an explicit --keep wins even
// when it is zero, otherwise the config limit applies. Negative values
// clamp to zero (prune everything).
func effectiveKeep(flagSet bool, flagVal, configLimit int) int {
	keep := configLimit
	if flagSet {
		keep = flagVal
	}
	if keep < 0 {
		keep = 0
	}
	return keep
}

// shortID safely truncates an ID string to 12 characters.
func shortID(s string) string {
	if len(s) >= 12 {
		return s[:12]
	}
	return s
}
