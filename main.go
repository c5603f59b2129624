package main

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gateserver/config"
	"gateserver/handler"
	"gateserver/metrics"
	"gateserver/mysql"
	"gateserver/redis"
	"gateserver/rpcservice"
	"gateserver/server"
	"gateserver/util"
	"gateserver/util/cpu"
	"gateserver/util/log"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const (
	VERSION          = "1.0.0"
	SHUTDOWN_TIMEOUT = 10 * time.Second
)

var (
	cfgPath = pflag.StringP("config", "c", "", "Config file path.")
)

func main() {
	pflag.Parse()

	conf, v, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	// Initialize logger
	log.InitLogger(conf.Log.Writers,
		conf.Log.LoggerLevel,
		conf.Log.LogFormatText,
		conf.Log.LoggerDir,
		conf.Log.LogRotateSize,
		conf.Log.LogBackupCount,
		conf.Log.LogMaxAge)
	defer log.Sync()

	config.Watch(v, func(c *config.Config) {
		log.SetLevel(c.Log.LoggerLevel)
	})

	// Increase resources limitations
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		panic(err)
	}
	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		panic(err)
	}

	log.Warnf("gate server version %s on %s", VERSION, util.GetInternalIP())

	if err := run(conf); err != nil {
		log.Errorf("gate server exit: %v", err)
		log.Sync()
		os.Exit(1)
	}
	log.Warn("gate server stopped")
}

func run(conf *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// mysql
	db, err := mysql.OpenDB(&mysql.Addr{
		Host:   conf.Mysql.Host,
		Port:   conf.Mysql.Port,
		User:   conf.Mysql.User,
		Passwd: conf.Mysql.Passwd,
		Schema: conf.Mysql.Schema,
	}, conf.Mysql.PoolSize)
	if err != nil {
		return err
	}
	defer db.Close()
	mysqlPool, err := mysql.NewMysqlPool(ctx, mysql.DBConnector(db), mysql.PoolConfig{
		Size:          conf.Mysql.PoolSize,
		CheckInterval: conf.Mysql.CheckInterval,
		IdleThreshold: conf.Mysql.IdleThreshold,
	})
	if err != nil {
		return err
	}
	defer mysqlPool.Close()
	dao := mysql.NewMysqlDao(mysqlPool)

	// verify service
	rpcPool, err := rpcservice.NewRPConPool(conf.VarifyServer.PoolSize, conf.VarifyServer.Host, conf.VarifyServer.Port)
	if err != nil {
		return err
	}
	defer rpcPool.Close()
	verifier := rpcservice.NewVerifyGrpcClient(rpcPool, conf.VarifyServer.Timeout)
	log.Warnf("verify service at %s", rpcPool.Addr())

	// redis
	codes := redis.InitRedisClient(&redis.Addr{
		Host: conf.Redis.Host,
		Port: conf.Redis.Port,
	}, conf.Redis.Passwd, conf.Redis.DB)
	defer codes.Close()
	if err := codes.Ping(ctx); err != nil {
		return err
	}

	sampler := cpu.NewSampler(nil)

	if err := metrics.RegisterPool("mysql", mysqlPool.NumIdle, mysqlPool.NumTotal); err != nil {
		return err
	}
	if err := metrics.RegisterPool("rpc", rpcPool.NumIdle, rpcPool.NumTotal); err != nil {
		return err
	}

	dispatcher, err := handler.NewDispatcher(dao, verifier, codes,
		handler.WithCooldown(conf.Varify.Cooldown),
		handler.WithCPU(sampler),
		handler.WithPool("mysql", mysqlPool),
		handler.WithPool("rpc", rpcPool),
	)
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	srv, err := server.NewServer(conf.Gate.Port, dispatcher, server.WithDeadline(conf.Gate.Deadline))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sampler.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Warn("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if conf.Metrics.Enable {
		ms := newMetricsServer(conf.Metrics.Port)
		g.Go(func() error {
			log.Warnf("metrics and pprof on :%s", conf.Metrics.Port)
			if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
			defer cancel()
			return ms.Shutdown(shutdownCtx)
		})
	}
	return g.Wait()
}

func newMetricsServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	// net/http/pprof registers on the default mux
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	return &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
}
