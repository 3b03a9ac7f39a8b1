package main

import (
	_ "embed"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/thorli9527/file-cloud/pkg/access"
	"github.com/thorli9527/file-cloud/pkg/cache"
	"github.com/thorli9527/file-cloud/pkg/catalog"
	"github.com/thorli9527/file-cloud/pkg/chunk"
	"github.com/thorli9527/file-cloud/pkg/config"
	"github.com/thorli9527/file-cloud/pkg/log"
	"github.com/thorli9527/file-cloud/pkg/models"
	"github.com/thorli9527/file-cloud/pkg/server"
	"github.com/thorli9527/file-cloud/pkg/service"
	"github.com/thorli9527/file-cloud/pkg/vfs"
)

const storageDirPerm = 0750

//go:embed VERSION
var Version string

func main() {
	// Initialize logger first
	_ = log.Logger

	configPath := flag.String("config", "", "Configuration file path (YAML)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		log.SetDebugMode()
		log.Debug().Msg("Debug mode enabled")
	}

	cfg := loadConfig(*configPath)

	if err := os.MkdirAll(cfg.Storage.Root, storageDirPerm); err != nil {
		log.Fatal().Err(err).Str("storage_root", cfg.Storage.Root).Msg("Failed to create storage root")
	}
	if err := os.MkdirAll(cfg.Storage.ScratchDir, storageDirPerm); err != nil {
		log.Fatal().Err(err).Str("scratch_dir", cfg.Storage.ScratchDir).Msg("Failed to create scratch directory")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), storageDirPerm); err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.Database.Path).Msg("Failed to create database directory")
	}

	cat, err := catalog.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Str("db_path", cfg.Database.Path).Msg("Failed to open catalog")
	}
	defer func() {
		if err := cat.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close catalog")
		}
	}()

	bootstrapAdmin(cat)

	ttl := cfg.CacheTTL()
	capacity := cfg.Cache.Capacity
	sessions := cache.NewTTL[string, models.SessionUser](capacity, ttl)
	pathCache := cache.NewTTL[vfs.PathKey, int64](capacity, ttl)
	dirMarkers := cache.NewTTL[string, bool](capacity, ttl)

	sharder := chunk.NewSharder(cfg.Storage.Root, dirMarkers)
	chunks := chunk.NewStore(sharder)
	paths := vfs.NewResolver(cat, pathCache)
	rights := access.NewResolver(cat)
	svc := service.New(cat, rights, paths, chunks, cfg.Storage.ScratchDir)

	srv := server.NewServer(svc, cat, sessions, strings.TrimSpace(Version))
	if err := srv.Start(cfg.Server.Listen); err != nil {
		log.Fatal().Err(err).Msg("Server failed to start")
	}

	os.Exit(0)
}

func loadConfig(path string) *config.Config {
	if path == "" {
		log.Info().Msg("No configuration file given, using defaults")
		return config.Default()
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("config", path).Msg("Failed to load configuration")
	}
	return cfg
}

// bootstrapAdmin seeds an administrator account on first run so the
// console is reachable. The default password must be changed immediately.
func bootstrapAdmin(cat *catalog.Catalog) {
	_, err := cat.GetUserByName("admin")
	if err == nil {
		return
	}
	if !errors.Is(err, catalog.ErrUserNotFound) {
		log.Fatal().Err(err).Msg("Failed to check for admin account")
	}

	if _, err := cat.CreateUser("admin", server.PasswordDigest("admin"), "", "", true); err != nil {
		log.Fatal().Err(err).Msg("Failed to create admin account")
	}
	log.Warn().Msg("Created default admin account (admin/admin), change the password now")
}
