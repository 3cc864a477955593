package main

import (
	"context"
	"fmt"
	"net/http"

	analysiscontroller "codebattle/internal/analysis/controller"
	analysisservice "codebattle/internal/analysis/service"
	"codebattle/internal/common/cache"
	"codebattle/internal/common/db"
	"codebattle/internal/common/docdb"
	commonmw "codebattle/internal/common/http/middleware"
	"codebattle/internal/common/mq"
	"codebattle/internal/common/storage"
	"codebattle/internal/common/task"
	gamecontroller "codebattle/internal/game/controller"
	gamerepo "codebattle/internal/game/repository"
	gameservice "codebattle/internal/game/service"
	"codebattle/internal/judge/executor"
	problemcontroller "codebattle/internal/problem/controller"
	problemrepo "codebattle/internal/problem/repository"
	problemservice "codebattle/internal/problem/service"
	"codebattle/internal/problem/source"
	usercontroller "codebattle/internal/user/controller"
	userrepo "codebattle/internal/user/repository"
	userservice "codebattle/internal/user/service"
	"codebattle/pkg/utils/logger"
	"codebattle/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// app owns every long-lived collaborator of the battle service.
type app struct {
	cfg *AppConfig

	mysql *db.MySQL
	mongo *docdb.Mongo
	redis *cache.RedisCache
	kafka *mq.KafkaProducer
	tasks *task.Runner

	refresher        *problemservice.PoolRefresher
	refresherStarted bool

	gameService     *gameservice.GameService
	problemService  *problemservice.ProblemService
	statsService    *userservice.StatsService
	analysisService *analysisservice.AnalysisService
}

type repositories struct {
	matches  gamerepo.MatchRepository
	users    userrepo.UserRepository
	problems problemrepo.ProblemRepository
}

func newApp(ctx context.Context, cfg *AppConfig) (*app, error) {
	a := &app{cfg: cfg, tasks: task.NewRunner(cfg.Game.Workers, cfg.Game.TaskTimeout)}

	var basicCache cache.BasicOps
	var leaderboard userrepo.Leaderboard
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCacheWithConfig(&cfg.Redis)
		if err != nil {
			logger.Warn(ctx, "redis unavailable, running without cache and leaderboard", zap.Error(err))
		} else {
			a.redis = redisCache
			basicCache = redisCache
			leaderboard = userrepo.NewRedisLeaderboard(redisCache, cfg.Leaderboard)
		}
	}

	repos, err := a.openStore(ctx, basicCache)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	var events mq.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := mq.NewKafkaProducer(cfg.Kafka)
		if err != nil {
			logger.Warn(ctx, "kafka disabled", zap.Error(err))
		} else {
			a.kafka = producer
			events = producer
		}
	}

	var archive storage.ObjectStorage
	if cfg.MinIO.Endpoint != "" && cfg.Game.ArchiveBucket != "" {
		objStorage, err := storage.NewMinIOStorage(cfg.MinIO)
		if err != nil {
			logger.Warn(ctx, "minio disabled", zap.Error(err))
		} else if err := objStorage.EnsureBucket(ctx, cfg.Game.ArchiveBucket, cfg.MinIO.Region); err != nil {
			logger.Warn(ctx, "archive bucket unavailable", zap.String("bucket", cfg.Game.ArchiveBucket), zap.Error(err))
		} else {
			archive = objStorage
		}
	}

	problemRepo := repos.problems
	if basicCache != nil {
		problemRepo = problemrepo.NewCachedProblemRepository(repos.problems, basicCache)
	}
	a.problemService = problemservice.NewProblemService(problemservice.Config{
		Repo:      problemRepo,
		Fetcher:   source.NewAizuFetcher(cfg.Aizu, nil),
		PoolFirst: cfg.Problems.PoolFirst,
		Timeout:   cfg.Problems.PickTimeout,
	})
	if cfg.Problems.RefreshInterval > 0 {
		a.refresher, err = problemservice.NewPoolRefresher(a.problemService, cfg.Problems.RefreshInterval, cfg.Problems.RefreshBatch)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("init problem refresher: %w", err)
		}
	}

	a.statsService, err = userservice.NewStatsService(repos.users, leaderboard)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.gameService, err = gameservice.NewGameService(gameservice.Config{
		Matches:       repos.matches,
		Sessions:      gamerepo.NewLRUSessionCache(cfg.Game.SessionCacheSize, cfg.Game.SessionTTL),
		Problems:      a.problemService,
		Executor:      executor.NewJDoodleClient(cfg.JDoodle, nil),
		Stats:         a.statsService,
		Tasks:         a.tasks,
		Events:        events,
		EventTopic:    cfg.Game.EventTopic,
		Archive:       archive,
		ArchiveBucket: cfg.Game.ArchiveBucket,
		ArchivePrefix: cfg.Game.ArchivePrefix,
		RateCache:     basicCache,
		RateLimit:     cfg.Game.RateLimit,
		MaxCodeBytes:  cfg.Game.MaxCodeBytes,
		Timeouts:      cfg.Game.Timeouts,
	})
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	var generator analysisservice.Generator
	gemini, err := analysisservice.NewGeminiGenerator(ctx, cfg.Analysis.Gemini)
	if err != nil {
		logger.Warn(ctx, "gemini client unavailable", zap.Error(err))
	} else if gemini != nil {
		generator = gemini
	}
	a.analysisService = analysisservice.NewAnalysisService(analysisservice.Config{
		Generator:    generator,
		Cache:        basicCache,
		ReportTTL:    cfg.Analysis.ReportTTL,
		MaxCodeBytes: cfg.Game.MaxCodeBytes,
		Timeout:      cfg.Analysis.Timeout,
	})

	if cfg.JDoodle.ClientID == "" || cfg.JDoodle.ClientSecret == "" {
		logger.Warn(ctx, "JDoodle credentials missing, run and submit will report a configuration error")
	}
	if generator == nil {
		logger.Warn(ctx, "GEMINI_API_KEY missing, analysis will report a configuration error")
	}
	return a, nil
}

func (a *app) openStore(ctx context.Context, basicCache cache.BasicOps) (*repositories, error) {
	switch a.cfg.Store.Driver {
	case storeMongo:
		mongoDB, err := docdb.NewMongo(ctx, a.cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("init mongo: %w", err)
		}
		a.mongo = mongoDB
		matches := gamerepo.NewMongoMatchRepository(mongoDB.Database())
		if err := matches.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure match indexes: %w", err)
		}
		return &repositories{
			matches:  matches,
			users:    userrepo.NewMongoUserRepository(mongoDB.Database()),
			problems: problemrepo.NewMongoProblemRepository(mongoDB.Database()),
		}, nil
	default:
		mysqlDB, err := db.NewMySQLWithConfig(&a.cfg.MySQL)
		if err != nil {
			return nil, fmt.Errorf("init mysql: %w", err)
		}
		a.mysql = mysqlDB
		provider := db.NewStaticProvider(mysqlDB)
		return &repositories{
			matches:  gamerepo.NewMySQLMatchRepository(provider),
			users:    userrepo.NewMySQLUserRepository(provider, basicCache),
			problems: problemrepo.NewMySQLProblemRepository(provider),
		}, nil
	}
}

func (a *app) startBackground(ctx context.Context) error {
	if a.refresher == nil {
		return nil
	}
	if err := a.refresher.Start(ctx); err != nil {
		return err
	}
	a.refresherStarted = true
	return nil
}

func (a *app) httpServer(cfg ServerConfig) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      a.router(cfg.CORS),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func (a *app) router(cors commonmw.CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.RequestLogger())
	router.Use(commonmw.CORSMiddleware(cors))

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	gamecontroller.NewGameController(a.gameService).RegisterRoutes(api.Group("/game"))
	usercontroller.NewUserController(a.statsService).RegisterRoutes(api.Group("/users"))
	problemcontroller.NewProblemController(a.problemService).RegisterRoutes(api.Group("/problems"))
	analysiscontroller.NewAnalysisController(a.analysisService).RegisterRoutes(api.Group("/ai"))
	return router
}

// close releases connections in reverse order of creation. Safe on a partially built app.
func (a *app) close(ctx context.Context) {
	if a.refresherStarted {
		_ = a.refresher.Stop()
	}
	if a.kafka != nil {
		if err := a.kafka.Close(); err != nil {
			logger.Warn(ctx, "close kafka producer failed", zap.Error(err))
		}
	}
	if a.mongo != nil {
		_ = a.mongo.Close(ctx)
	}
	if a.mysql != nil {
		_ = a.mysql.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
