package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"labreport-backend/internal/analysis"
	"labreport-backend/internal/credits"
	"labreport-backend/internal/extract"
	"labreport-backend/internal/llm"
	"labreport-backend/internal/llm/openai"
	"labreport-backend/internal/ocr"
	"labreport-backend/internal/reports"
	"labreport-backend/internal/shared/config"
	"labreport-backend/internal/shared/metrics"
	"labreport-backend/internal/shared/server/middleware"
	"labreport-backend/internal/shared/server/respond"
	"labreport-backend/internal/shared/storage/db"
)

// analyzeRateGroup throttles the analysis submission endpoints to ten
// runs per owner per hour.
const analyzeRateGroup = "ANALYZE"

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Identity(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				analyzeRateGroup: {Rate: 10.0 / 3600.0, Burst: 10},
			},
			GroupFor: rateGroupFor,
		}),
	)

	// Dependencies
	sqlDB := connectDatabase(cfg)

	var reportRepo reports.Repo
	var ledger *credits.Ledger
	if sqlDB != nil {
		reportRepo = &reports.PGRepo{DB: sqlDB}
		ledger = credits.NewPostgresLedger(credits.NewPGStore(sqlDB))
	} else {
		reportRepo = reports.NewMemoryRepo()
		ledger = credits.NewLedger()
	}

	reportSvc := &reports.Service{
		Repo:    reportRepo,
		Credits: ledger,
		Extract: extract.New(newOCRClient(cfg), cfg.MinExtractChars),
		Engine:  analysis.New(newLLMClient(cfg), cfg.MinAnalysisChars),
	}
	reportHandler := reports.NewHandler(reportSvc, cfg.MaxUploadBytes)
	creditHandler := credits.NewHandler(ledger)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	reportHandler.RegisterRoutes(api)
	creditHandler.RegisterRoutes(api)
	if cfg.Env == "dev" {
		dev := api.Group("/dev")
		creditHandler.RegisterDevRoutes(dev)
	}

	return r
}

func rateGroupFor(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && strings.HasPrefix(c.FullPath(), "/api/v1/reports") {
		return analyzeRateGroup
	}
	return ""
}

func connectDatabase(cfg config.Config) *sql.DB {
	if cfg.DatabaseURL == "" {
		return nil
	}
	ctx := context.Background()
	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	conn, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database, falling back to memory: %v", err)
		return nil
	}
	if err := db.RunMigrations(ctx, conn); err != nil {
		log.Printf("failed to run migrations, falling back to memory: %v", err)
		conn.Close()
		return nil
	}
	return conn
}

func newOCRClient(cfg config.Config) ocr.Client {
	if cfg.OCRProvider != "vision" {
		return ocr.Placeholder{}
	}
	client, err := ocr.NewVisionClient(context.Background())
	if err != nil {
		log.Printf("vision OCR unavailable, image uploads will fail: %v", err)
		return ocr.Placeholder{}
	}
	return client
}

func newLLMClient(cfg config.Config) llm.Client {
	if cfg.LLMProvider != "openai" {
		return llm.PlaceholderClient{}
	}
	client, err := openai.NewClient(strings.TrimSpace(os.Getenv("OPENAI_API_KEY")), cfg.LLMModel)
	if err != nil {
		log.Printf("openai client unavailable, analyses will fail: %v", err)
		return llm.PlaceholderClient{}
	}
	return client
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
