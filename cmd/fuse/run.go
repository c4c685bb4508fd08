package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/maelcolin/fuseboard/internal/coord"
	"github.com/maelcolin/fuseboard/internal/feeds"
)

// runCycle executes the same pipeline the dashboard runs, printing the
// snapshot instead of rendering it.
func runCycle() {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	watch := fs.Bool("watch", false, "keep running cycles until interrupted")
	interval := fs.Duration("interval", 5*time.Minute, "cycle interval in watch mode")
	offline := fs.Bool("offline", false, "skip feed polling")
	asJSON := fs.Bool("json", false, "print the raw snapshot as JSON")
	fs.Parse(os.Args[1:])

	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	var fetcher *feeds.Fetcher
	if !*offline {
		fetcher = feeds.NewFetcher(30 * time.Second)
	}

	events, closeEvents := openEventLog(cfg)
	defer closeEvents()

	coordinator := coord.NewCoordinator(st, cfg, fetcher, events)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch {
		fmt.Printf("cycling every %s, ctrl-c to stop\n", *interval)
		coordinator.Watch(ctx, *interval, func(snap coord.Snapshot, err error) {
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s  cycle failed: %v\n", time.Now().Format("15:04:05"), err)
				return
			}
			agg := snap.Plan.Aggregation
			fmt.Printf("%s  score %+.3f  signals %3d  conflicts %d  decisions %d\n",
				snap.GeneratedAt.Format("15:04:05"), agg.OverallScore,
				snap.SignalCount, len(agg.Conflicts), len(snap.Plan.Decisions))
		})
		<-ctx.Done()
		coordinator.Wait()
		return
	}

	snap, err := coordinator.RunOnce(ctx)
	if err != nil {
		log.Fatalf("fuse: cycle failed: %v", err)
	}

	if *asJSON {
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			log.Fatalf("fuse: failed to marshal snapshot: %v", err)
		}
		fmt.Println(string(out))
		return
	}

	printSnapshot(snap)
}

func printSnapshot(snap coord.Snapshot) {
	agg := snap.Plan.Aggregation

	fmt.Printf("cycle %s\n", snap.GeneratedAt.Format(time.RFC3339))
	fmt.Printf("  %-16s %d (%d from feeds)\n", "signals fused:", snap.SignalCount, snap.FeedSignals)
	fmt.Printf("  %-16s %+.3f\n", "overall score:", agg.OverallScore)
	fmt.Printf("  %-16s %d\n", "conflicts:", len(agg.Conflicts))
	fmt.Printf("  %-16s %d measured, %.1f%% on plan\n", "gaps:", snap.Gaps.TotalGaps, snap.Gaps.SuccessRate)

	if len(agg.Topics) > 0 {
		fmt.Println("\ntopics:")
		names := make([]string, 0, len(agg.Topics))
		for name := range agg.Topics {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ts := agg.Topics[name]
			fmt.Printf("  %-22s %+.3f  %-8s  %d signals, %.0f%% confidence\n",
				name, ts.Score, ts.Consensus, ts.SignalCount, ts.AvgConfidence*100)
		}
	}

	fmt.Println("\nsimulations:")
	for _, r := range snap.Simulations {
		status := "ok"
		if !r.OK() {
			status = "failed: " + r.Err
		}
		fmt.Printf("  %-22s %s\n", r.Kind, status)
	}

	if len(snap.Correlations) > 0 {
		fmt.Println("\ncorrelations:")
		for _, c := range snap.Correlations {
			fmt.Printf("  [%s] %s (strength %.2f)\n", c.Severity, c.Narrative, c.Strength)
		}
	}

	fmt.Println("\ndecisions:")
	if len(snap.Plan.Decisions) == 0 {
		fmt.Println("  none")
	}
	for _, d := range snap.Plan.Decisions {
		fmt.Printf("  %s  %s  %+.3f  %s\n", d.ID, d.Priority, d.Score, d.Title)
	}
}
