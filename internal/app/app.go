package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/example/inkpress/internal/auth"
	"github.com/example/inkpress/internal/cache"
	"github.com/example/inkpress/internal/config"
	"github.com/example/inkpress/internal/db"
	"github.com/example/inkpress/internal/models"
	"github.com/example/inkpress/internal/repository"
	"github.com/example/inkpress/internal/search"
	"github.com/example/inkpress/internal/service"
	"github.com/example/inkpress/internal/transport/http"
)

type Application struct {
	Config   *config.Config
	DB       *db.Database
	Cache    *cache.RedisClient
	Search   *search.Elastic
	Posts    *service.PostService
	Accounts *service.AccountService
	Router   http.Router
}

func Initialize() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if err := database.AutoMigrate(&models.Account{}, &models.Post{}, &models.ActivityLog{}); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	if err := database.EnsureGINIndexOnTags(); err != nil {
		return nil, fmt.Errorf("ensure GIN index: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	if err := redisClient.Ping(ctx); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	es, err := search.NewElastic(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: %w", err)
	}
	if err := es.EnsurePostsIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure ES index: %w", err)
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	denylist := cache.NewRedisDenylist(redisClient)

	posts := repository.NewPostRepository(database.Gorm)
	accounts := repository.NewAccountRepository(database.Gorm)

	postSvc := service.NewPostService(posts, redisClient, es)
	accountSvc := service.NewAccountService(accounts, posts, redisClient, es, tokens, denylist)

	r := http.NewRouter(cfg, postSvc, accountSvc, tokens, denylist)

	return &Application{
		Config:   cfg,
		DB:       database,
		Cache:    redisClient,
		Search:   es,
		Posts:    postSvc,
		Accounts: accountSvc,
		Router:   r,
	}, nil
}

func (a *Application) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}
	if a.Cache != nil {
		_ = a.Cache.Close()
	}
}
