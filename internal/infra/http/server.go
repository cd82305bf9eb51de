package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"workseald/internal/config"
	"workseald/internal/domain"
	"workseald/internal/infra/crypto"
	"workseald/internal/infra/db"
	"workseald/internal/infra/keys/soft"
	"workseald/internal/infra/policyopa"
	"workseald/internal/infra/ratelimit"
	"workseald/internal/infra/storage/memory"
	"workseald/internal/infra/storage/s3"
	"workseald/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	hybrid *usecase.Hybrid
	storer *usecase.Storer

	initErr error

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.initRateLimit(nil)
	s.routes()
	return s
}

// ServerDeps lets tests and alternative wiring inject collaborators instead
// of building them from config.
type ServerDeps struct {
	Hybrid      *usecase.Hybrid
	Storer      *usecase.Storer
	RateLimiter domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:    cfg,
		r:      r,
		hybrid: deps.Hybrid,
		storer: deps.Storer,
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initDeps() {
	manager, err := soft.NewManagerFromConfig(s.cfg)
	if err != nil {
		s.initErr = err
		return
	}
	cipher, err := crypto.NewCipher(s.cfg.AESKeyBits)
	if err != nil {
		s.initErr = err
		return
	}
	s.hybrid = usecase.NewHybrid(manager.Pair(), cipher)

	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath)
		if err != nil {
			s.initErr = err
			return
		}
		s.hybrid.WithPolicy(engine)
	}

	var objects domain.ObjectStore
	if s.cfg.S3Bucket != "" {
		client, err := s3.NewFromConfig(s.cfg)
		if err != nil {
			s.initErr = err
			return
		}
		objects = client
	} else {
		log.Printf("S3_BUCKET not set; storing packages in memory.")
		objects = memory.NewStore()
	}
	var records usecase.PackageRepository
	if s.store != nil {
		records = s.store.Packages
	}
	if records == nil {
		records = db.NewPackageRepository(nil)
	}
	s.storer = usecase.NewStorer(objects, records)
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			if limiter, err := ratelimit.NewRedisLimiter(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, nil); err == nil {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		dbMode := "no-db"
		if s.store != nil && s.store.DB != nil {
			dbMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": dbMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/workloads/encrypt", s.handleEncrypt)
		v1.POST("/workloads/decrypt", s.handleDecrypt)
		v1.POST("/workloads/:name/store", s.handleStore)
		v1.GET("/workloads/:name", s.handleFetch)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Run() error {
	if s.initErr != nil {
		return s.initErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}
