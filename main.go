package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chatapp-client/internal/api"
	"chatapp-client/internal/cache"
	"chatapp-client/internal/models"
	"chatapp-client/internal/remote"
	"chatapp-client/internal/router"
	"chatapp-client/internal/session"
	"chatapp-client/internal/transport"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func setupLogger(cfg models.ConfigFile) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	if cfg.LogToFile {
		config.OutputPaths = []string{"app.log", "stdout"}
	} else {
		config.OutputPaths = []string{"stdout"}
	}

	level := zapcore.InfoLevel
	if cfg.LogLevel != "" {
		var err error
		level, err = zapcore.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	sugar := logger.Sugar()
	defer logger.Sync()

	return sugar, nil
}

func readConfigFile() (models.ConfigFile, error) {
	var cfg models.ConfigFile

	configFile, err := os.Open("config.json")
	if err != nil {
		return cfg, err
	}
	defer configFile.Close()

	bytes, err := io.ReadAll(configFile)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(bytes, &cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setupRedis(address string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: "",
		DB:       0,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func setupTransport(ctx context.Context, cfg models.ConfigFile, sugar *zap.SugaredLogger) (transport.Transport, error) {
	if cfg.RedisAddress != "" {
		redisClient, err := setupRedis(cfg.RedisAddress)
		if err != nil {
			return nil, err
		}
		return transport.NewRedisTransport(sugar, redisClient), nil
	}
	return transport.DialGateway(ctx, sugar, cfg.GatewayUrl, cfg.SessionToken)
}

func main() {
	fmt.Println("Reading config file...")
	cfg, err := readConfigFile()
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Setting up logger...")
	sugar, err := setupLogger(cfg)
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("Parsing session token...")
	sess, err := session.Parse(cfg.JwtSecret, cfg.SessionToken)
	if err != nil {
		sugar.Fatal(err)
	}

	fmt.Println("Connecting to database...")
	svc, err := remote.Open(&cfg, sugar)
	if err != nil {
		sugar.Fatal(err)
	}
	defer svc.Close()

	if cfg.SelfContained {
		if err := remote.CreateTables(svc.DB()); err != nil {
			sugar.Fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Connecting to event stream...")
	tr, err := setupTransport(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatal(err)
	}

	c := cache.New(sugar, svc, sess.UserID)

	r := router.New(sugar, tr, c)
	if err := r.Start(ctx); err != nil {
		sugar.Fatal(err)
	}
	defer r.Stop()

	c.RefreshServers(ctx)
	c.RefreshRelations(ctx)
	c.RefreshDMChannels(ctx)
	c.RefreshAllRoles(ctx)

	fullAddress := fmt.Sprintf("%s:%s", cfg.Address, cfg.Port)
	fmt.Printf("Client state is being served on http://%s\n", fullAddress)

	server := &http.Server{
		Addr:    fullAddress,
		Handler: api.New(sugar, c, r).Routes(cfg.PrintHttpRequests),
	}

	go func() {
		<-ctx.Done()
		server.Shutdown(context.Background())
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		sugar.Fatal(err)
	}
}
