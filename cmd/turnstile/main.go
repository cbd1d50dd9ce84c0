// Command turnstile counts people crossing a virtual line in video.
//
// With -input it processes a single video (or camera index) and exits,
// printing the totals and optionally writing the crossing events to CSV.
// Without -input it starts the HTTP server and accepts counting jobs
// over the API.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ayusman/turnstile/internal/app"
	"github.com/ayusman/turnstile/internal/config"
	"github.com/ayusman/turnstile/internal/counter"
	"github.com/ayusman/turnstile/internal/detector"
	"github.com/ayusman/turnstile/internal/server"
	"github.com/ayusman/turnstile/internal/store"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	godotenv.Load()

	cfg := config.Load()

	input := flag.String("input", "", "video file or camera index; empty starts the server")
	line := flag.String("line", "horizontal", "counting line orientation (horizontal or vertical)")
	linePos := flag.Float64("line-pos", 0.5, "fractional line position across the frame (0-1)")
	conf := flag.Float64("conf", 0, "detection confidence threshold override")
	stride := flag.Int("stride", 1, "process every Nth frame")
	csvPath := flag.String("csv", "", "write crossing events to this CSV file (one-shot mode)")
	addr := flag.String("addr", cfg.Addr, "HTTP listen address (server mode)")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path (server mode)")
	flag.Parse()

	orientation := counter.Orientation(*line)
	if orientation != counter.OrientationHorizontal && orientation != counter.OrientationVertical {
		log.Fatalf("invalid -line %q: want horizontal or vertical", *line)
	}

	jobConfig := app.JobConfig{
		LineOrientation: orientation,
		LinePosition:    *linePos,
		ConfThreshold:   *conf,
		FrameStride:     *stride,
	}
	detConfig := detector.Config{
		ModelPath:     cfg.ModelPath,
		ConfigPath:    cfg.ConfigPath,
		ConfThreshold: cfg.ConfThreshold,
		NMSThreshold:  cfg.NMSThreshold,
	}

	if *input != "" {
		runOnce(*input, jobConfig, detConfig, *csvPath)
		return
	}

	runServer(cfg, *addr, *dbPath, detConfig)
}

// runOnce processes one source to completion and prints the totals.
func runOnce(input string, jobConfig app.JobConfig, detConfig detector.Config, csvPath string) {
	manager := app.NewManager(app.Config{Detector: detConfig})

	job, err := manager.Submit(input, jobConfig)
	if err != nil {
		log.Fatalf("Failed to start job: %v", err)
	}
	<-job.Done()

	snap := job.Snapshot()
	if snap.Status == store.JobStatusError {
		log.Fatalf("Processing failed: %s", snap.Message)
	}

	fmt.Printf("enter: %d\nexit: %d\noccupancy: %d\n", snap.TotalEnter, snap.TotalExit, snap.Occupancy)

	if csvPath != "" {
		if err := writeCSV(csvPath, job.Events()); err != nil {
			log.Fatalf("Failed to write %s: %v", csvPath, err)
		}
		fmt.Printf("events written to %s\n", csvPath)
	}
}

// writeCSV writes the crossing events to path, header first.
func writeCSV(path string, events []counter.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"timestamp", "track_id", "direction", "total_enter", "total_exit"})
	for _, e := range events {
		w.Write([]string{
			strconv.FormatFloat(e.Timestamp, 'f', 3, 64),
			strconv.Itoa(e.TrackID),
			string(e.Direction),
			strconv.Itoa(e.TotalEnter),
			strconv.Itoa(e.TotalExit),
		})
	}
	w.Flush()

	return w.Error()
}

// runServer starts the HTTP API with persistent job storage.
func runServer(cfg config.Config, addr, dbPath string, detConfig detector.Config) {
	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	manager := app.NewManager(app.Config{
		Store:    st,
		Detector: detConfig,
	})
	defer manager.StopAll()

	srv := server.New(server.Config{
		StaticDir:   cfg.StaticDir,
		UploadDir:   cfg.UploadDir,
		MaxUploadMB: cfg.MaxUploadMB,
		Store:       st,
		Manager:     manager,
	})

	fmt.Printf("Starting server on %s\n", addr)
	if err := srv.ListenAndServe(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
