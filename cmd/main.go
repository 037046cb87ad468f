package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"ChipTracker/config"
	"ChipTracker/internal/auth"
	"ChipTracker/internal/game/engine"
	"ChipTracker/internal/game/manager"
	"ChipTracker/internal/ledger"
	"ChipTracker/internal/middleware"
	"ChipTracker/internal/observer"
	"ChipTracker/internal/room"
	"ChipTracker/internal/storage"
	"ChipTracker/internal/utils"
	"ChipTracker/internal/websocket"
)

func main() {
	configPath := "config/config.yaml"
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		configPath = p
	}
	config.Load(configPath)
	utils.Init(config.C.Log.Level)
	logger := utils.Logger()

	//-------------------------------------------------------
	// 1. 房间存储：redis | memory
	//-------------------------------------------------------
	var (
		rdb    *redis.Client
		repo   room.Repo
		nonces auth.NonceStore
	)
	if strings.EqualFold(config.C.Store.Mode, "redis") {
		var err error
		rdb, err = storage.OpenRedis(config.C.Redis.Addr, config.C.Redis.Password, config.C.Redis.DB)
		if err != nil {
			logger.Fatal("Redis init failed", "err", err)
		}
		defer rdb.Close()
		repo = room.NewRedisRepo(rdb)
		nonces = auth.NewRedisNonceStore(rdb)
	} else {
		repo = room.NewMemoryRepo()
		nonces = auth.NewMemoryNonceStore()
	}

	//-------------------------------------------------------
	// 2. 账本：memory | sqlite | postgres
	//-------------------------------------------------------
	store, mode, err := ledger.New(config.C.Ledger.Mode, config.C.Ledger.DSN, config.C.Ledger.Path)
	if err != nil {
		logger.Fatal("Ledger init failed", "mode", mode, "err", err)
	}
	defer store.Close()
	logger.Info("storage ready", "rooms", config.C.Store.Mode, "ledger", mode)

	roomSvc := room.NewService(repo, store, room.Defaults{
		SmallBlind:    config.C.Room.SmallBlind,
		BigBlind:      config.C.Room.BigBlind,
		MaxPlayers:    config.C.Room.MaxPlayers,
		StartingChips: config.C.Room.StartingChips,
	}, logger.WithPrefix("room"))

	//-------------------------------------------------------
	// 3. 变更通知：push | poll
	//-------------------------------------------------------
	obs, pub, err := observer.New(config.C.Observer.Mode, rdb, roomSvc, config.C.Observer.Interval, logger.WithPrefix("observer"))
	if err != nil {
		logger.Fatal("Observer init failed", "err", err)
	}

	//-------------------------------------------------------
	// 4. Hub + GameManager
	//-------------------------------------------------------
	hub := websocket.NewHub(logger.WithPrefix("ws"))
	gameMgr := manager.NewGameManager(repo, store, obs, pub, hub, engine.Options{
		MaxAttempts: config.C.Settlement.MaxAttempts,
		Timeout:     config.C.Settlement.Timeout,
		Backoff:     config.C.Settlement.Backoff,
	}, logger.WithPrefix("game"))
	hub.OnIncoming = gameMgr.HandlePlayerMessage
	go hub.Run()

	//-------------------------------------------------------
	// 5. Gin + CORS + 路由
	//-------------------------------------------------------
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	secret := []byte(config.C.JWT.Secret)
	authH := auth.NewHandler(nonces, store, secret, config.C.Room.StartingChips, logger.WithPrefix("auth"))
	authH.Register(r)

	public := r.Group("/", middleware.OptionalJwt(secret))
	room.NewHandler(roomSvc).Register(public)
	manager.NewHandler(gameMgr).Register(public)

	private := r.Group("/", middleware.JwtAuthMiddleware(secret))
	{
		private.GET("/ws", websocket.ServeWS(hub))
		private.GET("/accounts/me", authH.Me)
		private.POST("/accounts/me/chips", authH.UpdateChips)
	}

	//-------------------------------------------------------
	// 6. 启动 + 优雅退出
	//-------------------------------------------------------
	srv := &http.Server{Addr: config.C.Server.Port, Handler: r}
	go func() {
		logger.Info("Server running", "addr", config.C.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
	gameMgr.Close()
	hub.Close()
}
