// Package main provides the entry point for the AOI Sentinel service.
package main

import (
	"flag"
	"log"

	"aoi-sentinel/internal/config"
	"aoi-sentinel/internal/server"
	"aoi-sentinel/internal/version"
)

const appTitle = "AOI Sentinel"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	configPath := flag.String("config", "sentinel.yaml", "Path to service config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	addr := cfg.Server.Addr
	if *addrFlag != "" {
		addr = *addrFlag
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	log.Printf("Starting %s v%s (%s) on %s", appTitle, version.Version, version.GitCommit, addr)
	if err := srv.Start(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
