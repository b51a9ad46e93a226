package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	viewerDir := flag.String("viewer", "", "Path to viewer directory (default: ../viewer)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	flag.Parse()

	if *viewerDir == "" {
		exe, _ := os.Executable()
		*viewerDir = filepath.Join(filepath.Dir(exe), "..", "viewer")
		// Fallback for development
		if _, err := os.Stat(*viewerDir); os.IsNotExist(err) {
			*viewerDir = "../viewer"
		}
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}

	db, err := OpenDB(":memory:")
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	analytics := NewAnalytics(db)
	defer analytics.Stop()

	// Admin password enables the force-restart API; without it the arena
	// just runs rounds forever on its own.
	var auth *Auth
	if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
		auth, err = NewAuth(db, pw)
		if err != nil {
			log.Fatalf("auth setup: %v", err)
		}
	}

	arena := NewArena(db, analytics, *seed)
	go arena.Run()
	defer arena.Stop()

	hub := NewHub(arena, auth)
	go hub.Run()

	mux := SetupRoutes(hub, *viewerDir)

	// Graceful shutdown
	stopSig := make(chan os.Signal, 1)
	signal.Notify(stopSig, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s", *addr)
		log.Printf("Serving viewer files from %s", *viewerDir)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stopSig
	log.Println("Shutting down...")
	server.Close()
}
