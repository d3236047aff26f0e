package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/coachline/coachline/config"
	"github.com/coachline/coachline/internal/api/handlers"
	"github.com/coachline/coachline/internal/api/middleware"
	"github.com/coachline/coachline/internal/api/routes"
	"github.com/coachline/coachline/internal/cache"
	"github.com/coachline/coachline/internal/logger"
	"github.com/coachline/coachline/internal/metrics"
	"github.com/coachline/coachline/internal/providers/risk"
	"github.com/coachline/coachline/internal/providers/stt"
	mongorepo "github.com/coachline/coachline/internal/repositories/mongo"
	pgrepo "github.com/coachline/coachline/internal/repositories/postgres"
	"github.com/coachline/coachline/internal/services"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	cfg := config.Load()

	ctx := context.Background()

	// Stores are optional. When a URI is missing the dependent features
	// degrade: no archives, no cache, in-memory everything else.
	var transcriptRepo pgrepo.TranscriptRepository
	var eventRepo pgrepo.CallEventRepository
	if cfg.PostgresURI != "" {
		db, err := config.InitPostgres(cfg)
		if err != nil {
			log.WithError(err).Fatal("PostgreSQL init error")
		}
		transcriptRepo = pgrepo.NewTranscriptRepo(db)
		eventRepo = pgrepo.NewCallEventRepo(db)
		log.Info("PostgreSQL connected")
	} else {
		log.Warn("POSTGRES_URI unset, transcript archive disabled")
	}

	var analysisCache cache.Cache
	if cfg.RedisAddr != "" {
		rdb, err := config.InitRedis(cfg)
		if err != nil {
			log.WithError(err).Fatal("Redis init error")
		}
		analysisCache = cache.NewRedisCache(rdb)
		log.Info("Redis connected")
	} else {
		log.Warn("REDIS_ADDR unset, analysis cache disabled")
	}

	var segmentRepo mongorepo.SegmentRepository
	if cfg.MongoURI != "" {
		mdb, err := config.InitMongo(cfg)
		if err != nil {
			log.WithError(err).Fatal("MongoDB init error")
		}
		idxCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := mongorepo.EnsureSegmentIndexes(idxCtx, mdb); err != nil {
			log.WithError(err).Fatal("MongoDB index error")
		}
		cancel()
		segmentRepo = mongorepo.NewSegmentRepo(mdb)
		log.Info("MongoDB connected")
	} else {
		log.Warn("MONGO_URI unset, segment retention disabled")
	}

	var sttProvider stt.Provider
	switch cfg.STTProvider {
	case "google":
		p, err := stt.NewGoogleSpeech(ctx)
		if err != nil {
			log.WithError(err).Fatal("Speech client init error")
		}
		sttProvider = p
	default:
		sttProvider = stt.NewMock()
		log.Warn("using mock transcription provider")
	}
	defer sttProvider.Close()

	if cfg.GCPProjectID == "" {
		log.Fatal("GCP_PROJECT_ID is required")
	}
	analyzer, err := risk.NewVertexGemini(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.RiskModel)
	if err != nil {
		log.WithError(err).Fatal("Vertex client init error")
	}
	defer analyzer.Close()

	recorder := metrics.NewRecorder()
	broadcaster := services.NewBroadcaster(log)
	ingest := services.NewIngestService(sttProvider, broadcaster, segmentRepo, log)
	analysis := services.NewAnalysisService(analyzer, recorder, analysisCache, transcriptRepo, eventRepo, log, cfg.AnalysisCacheTTL)

	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery())

	routes.RegisterRoutes(r, routes.Deps{
		Analyze:    handlers.NewAnalyzeHandler(analysis, log),
		Health:     handlers.NewHealthHandler(recorder, ingest, broadcaster),
		Voice:      handlers.NewVoiceHandler(cfg.PublicBaseURL, log),
		Transcript: handlers.NewTranscriptHandler(transcriptRepo, eventRepo, log),
		WS:         handlers.NewWSHandler(ingest, broadcaster, log),
	})

	log.WithField("port", cfg.Port).Info("server listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
