// posereplay re-runs a recorded session through the fusion engine and
// reports how far the replay diverges from the estimates that were
// published live. Run without -session to list recorded sessions.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/itsWihy/TryGoneRobotTemplate/internal/config"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/fusion"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/poselog"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/replay"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/units"
	"github.com/itsWihy/TryGoneRobotTemplate/internal/version"
)

func main() {
	dbPath := flag.String("db", "pose.db", "Path to the pose database")
	sessionID := flag.String("session", "", "Session ID to replay (empty lists sessions)")
	configPath := flag.String("config", "", "Tuning config JSON (defaults apply if empty)")
	chartPath := flag.String("chart", "", "Write an HTML trajectory chart to this path")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("posereplay %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	store, err := poselog.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open pose database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *sessionID == "" {
		listSessions(store)
		return
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}

	report, err := replay.Run(store, *sessionID, replay.Options{
		Config: fusion.ConfigFromTuning(tuning),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("session  %s (%s)\n", report.Session.ID, report.Session.StartedAt.Format("2006-01-02 15:04:05"))
	if report.Session.Notes != "" {
		fmt.Printf("notes    %s\n", report.Session.Notes)
	}
	fmt.Printf("metrics  %s\n", report.Metrics)
	fmt.Printf("heading  max divergence %.3f deg\n", units.RadiansToDegrees(report.Metrics.HeadingMaxRad))
	fmt.Printf("discards invalid=%d out_of_order=%d out_of_range=%d\n",
		report.Discards.Invalid, report.Discards.OutOfOrder, report.Discards.OutOfRange)

	if *chartPath != "" {
		if err := report.WriteTrajectoryChartFile(*chartPath); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write chart: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("chart    %s\n", *chartPath)
	}
}

func listSessions(store *poselog.Store) {
	sessions, err := store.ListSessions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list sessions: %v\n", err)
		os.Exit(1)
	}
	if len(sessions) == 0 {
		fmt.Println("no recorded sessions")
		return
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s  %s\n", s.ID, s.StartedAt.Format("2006-01-02 15:04:05"), s.Notes)
	}
}
