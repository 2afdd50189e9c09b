package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"fileservices/internal/config"
	"fileservices/internal/database"
	"fileservices/internal/domain/events"
	"fileservices/internal/domain/files"
	"fileservices/internal/server"
	"fileservices/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if cfg.AppEnv == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	store, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var (
		db      *gorm.DB
		journal files.Journal
	)
	if cfg.DatabaseURL != "" {
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		if err := files.Migrate(db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		journal = files.NewRepository(db)
	}

	hub := events.NewHub()
	svc := files.NewService(store, journal, hub, cfg.MaxUploadSize)

	router := server.NewRouter(server.Deps{
		Files:       svc,
		Hub:         hub,
		CORSOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	log.Printf("File Services API listening on %s (storage=%s)", srv.Addr, cfg.Storage.Type)
	log.Println("Endpoints:")
	log.Println("  POST   /upload                 - Upload a file (multipart field \"file\")")
	log.Println("  GET    /files                  - List uploads and images")
	log.Println("  GET    /images                 - List images")
	log.Println("  GET    /images/:filename       - View an image inline")
	log.Println("  GET    /download/:filename     - Download a file")
	log.Println("  DELETE /files/:filename        - Delete a file or image")
	log.Println("  GET    /public/images/:filename - Static image mount")
	log.Println("  GET    /events                 - Recent upload/delete events")
	log.Println("  GET    /ws/events              - Live event stream")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"fileservices": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				err := srv.Shutdown(ctx)
				hub.Close()
				if db != nil {
					if sqlDB, dbErr := db.DB(); dbErr == nil {
						err = errors.Join(err, sqlDB.Close())
					}
				}
				return err
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
