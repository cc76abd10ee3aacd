// Command tonksrv is the tonk table server: it upgrades authenticated
// websocket connections into table rooms and mediates every table's
// rounds through internal/table, internal/store and internal/wallet.
//
// Grounded on the teacher's cmd/pokersrv/main.go: flag-parsed overrides
// with environment fallbacks, a logging backend built once at startup and
// handed down to every subsystem, and a blocking Serve call as main's last
// line.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tonktable/tonkd/internal/config"
	"github.com/tonktable/tonkd/internal/deck"
	"github.com/tonktable/tonkd/internal/logging"
	"github.com/tonktable/tonkd/internal/store"
	"github.com/tonktable/tonkd/internal/table"
	"github.com/tonktable/tonkd/internal/transport"
	"github.com/tonktable/tonkd/internal/wallet"
)

// defaultStake is used for any table id not present in seededStakes.
const defaultStake = int64(10)

// seededStakes mirrors the Table persisted entity's per-table stake field;
// production deployments seed this from the same document store that
// backs User/Wallet, kept as a literal map here since no such admin
// surface is in scope.
var seededStakes = map[string]int64{
	"low-stakes":  5,
	"mid-stakes":  25,
	"high-stakes": 100,
}

func stakeFor(tableID string) int64 {
	if s, ok := seededStakes[tableID]; ok {
		return s
	}
	return defaultStake
}

func main() {
	var (
		listenAddr string
		logPath    string
		debugLevel string
		memBackend bool
	)
	flag.StringVar(&listenAddr, "listen", "", "Address to listen on (overrides TONK_LISTEN_ADDR)")
	flag.StringVar(&logPath, "logfile", "tonksrv.log", "Path to the rotating log file")
	flag.StringVar(&debugLevel, "debuglevel", "", "Logging level: trace, debug, info, warn, error (overrides TONK_DEBUG_LEVEL)")
	flag.BoolVar(&memBackend, "memstore", false, "Use in-process store/wallet instead of Redis/Postgres (local dev only)")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tonksrv: config: %v\n", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if debugLevel != "" {
		cfg.DebugLevel = debugLevel
	}

	logBackend, err := logging.New(logPath, cfg.DebugLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tonksrv: logging: %v\n", err)
		os.Exit(1)
	}
	defer logBackend.Close()
	log := logBackend.Logger("SRVR")

	var st store.Store
	var w wallet.Wallet

	if memBackend {
		log.Warnf("running with in-process store/wallet; state is lost on restart")
		st = store.NewMemStore()
		w = wallet.NewMemWallet(nil)
	} else {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Errorf("redis ping failed at %s: %v", cfg.RedisAddr, err)
			os.Exit(1)
		}
		st = store.NewRedisStore(rdb)

		pw, err := wallet.NewPostgresWallet(cfg.PostgresDSN)
		if err != nil {
			log.Errorf("postgres wallet init failed: %v", err)
			os.Exit(1)
		}
		if err := pw.Migrate(); err != nil {
			log.Errorf("postgres wallet migrate failed: %v", err)
			os.Exit(1)
		}
		w = pw
	}

	hub := transport.NewHub()
	reg := table.NewRegistry(func(id string) *table.Table {
		tcfg := table.DefaultConfig(stakeFor(id))
		tcfg.LockTTL = cfg.LockTTL
		tcfg.RoundTransitionDelay = cfg.RoundTransitionDelay
		tcfg.BotThinkTime = cfg.BotThinkTime

		rng := deck.NewRNG()
		return table.New(id, tcfg, st, w, hub, table.NewRealScheduler(), rng)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(rw http.ResponseWriter, r *http.Request) {
		userID := r.URL.Query().Get("userId")
		if userID == "" {
			http.Error(rw, "missing userId", http.StatusUnauthorized)
			return
		}
		transport.ServeWS(hub, reg, userID, rw, r)
	})
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}
