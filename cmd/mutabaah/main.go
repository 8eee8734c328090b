package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rfachrizal/mutabaah/internal/database"
	"github.com/rfachrizal/mutabaah/internal/importer"
	"github.com/rfachrizal/mutabaah/internal/logging"
	"github.com/rfachrizal/mutabaah/internal/schedule"
	"github.com/rfachrizal/mutabaah/internal/server"
	"github.com/rfachrizal/mutabaah/internal/store"
	gateway "github.com/rfachrizal/mutabaah/internal/sync"
)

func main() {
	logger := logging.Setup(os.Getenv("MUTABAAH_LOG_LEVEL"), os.Getenv("MUTABAAH_LOG_FORMAT"))

	port := os.Getenv("MUTABAAH_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("MUTABAAH_DB_PATH")
	if dbPath == "" {
		dbPath = "mutabaah.db"
	}

	db, err := database.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	st := store.New(db, logger.With("component", "store"))

	gw := gateway.New(os.Getenv("MUTABAAH_SYNC_ENDPOINT"), st, logger.With("component", "sync"))

	// One snapshot pull at startup. Failure is not fatal: the local cache,
	// seeded if necessary, carries the app until the next restart.
	pullCtx, cancelPull := context.WithTimeout(context.Background(), time.Minute)
	gw.Pull(pullCtx)
	cancelPull()

	gw.Start(context.Background())
	defer gw.Stop()

	interval := importer.DefaultInterval
	if v := os.Getenv("MUTABAAH_IMPORT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			interval = d
		} else {
			logger.Warn("bad MUTABAAH_IMPORT_INTERVAL, using default", "value", v)
		}
	}
	queue := importer.New(st, gw, interval, logger.With("component", "importer"))
	queue.Start(context.Background())
	defer queue.Stop()

	timetable := schedule.NewService(schedule.Config{
		Latitude:  os.Getenv("MUTABAAH_TIMETABLE_LAT"),
		Longitude: os.Getenv("MUTABAAH_TIMETABLE_LON"),
	})

	srv := server.New(st, gw, queue, timetable, logger)

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		fmt.Printf("Mutabaah running at http://localhost:%s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
