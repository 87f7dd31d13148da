package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-typeset/internal/artifacts"
	"resume-typeset/internal/render"
	"resume-typeset/internal/shared/config"
	"resume-typeset/internal/shared/server"
	"resume-typeset/internal/shared/storage/db"
	"resume-typeset/internal/shared/storage/object"
	localstore "resume-typeset/internal/shared/storage/object/local"
	s3store "resume-typeset/internal/shared/storage/object/s3"
	"resume-typeset/internal/templates"
	"resume-typeset/internal/typeset"
)

// App holds the wired application dependencies.
type App struct {
	Config        config.Config
	Router        *gin.Engine
	DB            *sql.DB
	Objects       object.ObjectStore
	Registry      *templates.Registry
	Compiler      typeset.Compiler
	ArtifactStore *artifacts.Store
	Engine        *render.Engine
	RenderHandler *render.Handler
}

// Build prepares application dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objects, err := buildObjects(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry, err := templates.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("load template registry: %w", err)
	}

	var libraryRepo artifacts.LibraryRepo
	var currentRepo artifacts.CurrentRepo
	if sqlDB != nil {
		libraryRepo = &artifacts.PGLibraryRepo{DB: sqlDB}
		currentRepo = &artifacts.PGCurrentRepo{DB: sqlDB}
	} else {
		libraryRepo = artifacts.NewMemoryLibraryRepo()
		currentRepo = artifacts.NewMemoryCurrentRepo()
	}

	store := artifacts.NewStore(objects, libraryRepo, currentRepo)
	store.Namespace = cfg.StorageNamespace
	store.EvictionPolicy = cfg.LibraryEviction
	store.MaxLibraryEntries = cfg.LibraryMaxEntries

	compiler := &typeset.CLICompiler{
		Binary:           cfg.TypesetCompiler,
		PreviewTool:      cfg.PreviewTool,
		Timeout:          cfg.TypesetTimeout,
		MaxArtifactBytes: cfg.MaxArtifactBytes,
	}

	engine := render.NewEngine(registry, compiler, store)
	handler := render.NewHandler(engine, store)

	app := &App{
		Config:        cfg,
		DB:            sqlDB,
		Objects:       objects,
		Registry:      registry,
		Compiler:      compiler,
		ArtifactStore: store,
		Engine:        engine,
		RenderHandler: handler,
	}
	app.Router = server.NewRouter(server.RouterDeps{
		Config:        cfg,
		RenderHandler: handler,
	})
	return app, nil
}

// Shutdown tears down all render sessions, revoking every artifact handle,
// and closes the database.
func (a *App) Shutdown() {
	if a.Engine != nil {
		a.Engine.Teardown()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildObjects(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
