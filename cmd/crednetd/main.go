package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"crednet/config"
	"crednet/crypto"
	"crednet/native/consensus"
	"crednet/native/loans"
	"crednet/native/oracle"
	"crednet/native/params"
	"crednet/observability"
	"crednet/observability/logging"
	"crednet/storage"
)

// moduleAddress derives a deterministic account for a protocol module from
// its name, so escrow addresses are stable across restarts and deployments.
func moduleAddress(name string) crypto.Address {
	digest := ethcrypto.Keccak256([]byte("crednet/module/" + name))
	return crypto.MustNewAddress(crypto.CredPrefix, digest[12:])
}

// adminRoles grants the oracle admin role to one operator address.
type adminRoles struct {
	admin crypto.Address
	set   bool
}

func (r adminRoles) HasRole(role string, addr []byte) bool {
	if !r.set || role != consensus.RoleOracleAdmin {
		return false
	}
	got, err := crypto.NewAddress(crypto.CredPrefix, addr)
	if err != nil {
		return false
	}
	return got.Equal(r.admin)
}

func run() error {
	var (
		configPath  = flag.String("config", "config.toml", "path to the protocol configuration file")
		metricsAddr = flag.String("metrics", ":9090", "listen address for metrics and health endpoints")
		env         = flag.String("env", "", "deployment environment label")
		oracleAdmin = flag.String("oracle-admin", "", "bech32 address allowed to manage the signer registry")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	log := logging.Setup("crednetd", *env, slog.LevelInfo)

	var db storage.Database
	if cfg.DataDir != "" {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("open database at %s: %w", cfg.DataDir, err)
		}
		db = ldb
	} else {
		log.Warn("no data directory configured, state is in-memory only")
		db = storage.NewMemDB()
	}
	defer db.Close()

	state := storage.NewProtocolState(db)
	store := params.NewStore(state, params.SettingsFromConfig(*cfg))
	if cfg.Paused {
		if err := store.SetPauses(params.Pauses{Consensus: true, Loans: true}); err != nil {
			return fmt.Errorf("apply pause configuration: %w", err)
		}
		log.Warn("protocol modules start paused per configuration")
	}

	roles := adminRoles{}
	if *oracleAdmin != "" {
		admin, err := crypto.DecodeAddress(*oracleAdmin)
		if err != nil {
			return fmt.Errorf("decode oracle admin address: %w", err)
		}
		roles = adminRoles{admin: admin, set: true}
	} else {
		log.Warn("no oracle admin configured, signer registry is locked")
	}
	registry := consensus.NewRegistry(roles)

	var (
		consensusAddr    = moduleAddress("consensus")
		loansAddr        = moduleAddress("loans")
		lendingEscrow    = moduleAddress("loans/escrow")
		collateralEscrow = moduleAddress("loans/collateral")
	)
	emitter := observability.NewMetricsEmitter(nil)

	consensusEngine := consensus.NewEngine(cfg.ChainID, consensusAddr, loansAddr, registry, store)
	consensusEngine.SetState(state)
	consensusEngine.SetPauses(store)
	consensusEngine.SetEmitter(emitter)
	consensusEngine.SetLogger(log)

	manual := oracle.NewManualOracle()
	prices := oracle.NewAggregator(cfg.OraclePriority, map[string]oracle.PriceOracle{
		"manual": manual,
	}, cfg.OracleMaxQuoteAgeSeconds)

	lendingToken := storage.NewTokenLedger(db, cfg.LendingTokenSymbol, 18)
	collateralToken := storage.NewTokenLedger(db, cfg.CollateralTokenSymbol, 18)

	if cfg.LendingEscrowSeed != "" {
		seed, ok := new(big.Int).SetString(cfg.LendingEscrowSeed, 10)
		if !ok || seed.Sign() <= 0 {
			return fmt.Errorf("invalid LendingEscrowSeed %q", cfg.LendingEscrowSeed)
		}
		minted, err := lendingToken.SeedBalance(lendingEscrow, seed)
		if err != nil {
			return fmt.Errorf("seed lending escrow: %w", err)
		}
		if minted {
			log.Info("lending escrow seeded",
				"amount", seed.String(),
				"address", lendingEscrow.String(),
			)
		}
	} else if bal, err := lendingToken.BalanceOf(lendingEscrow); err != nil {
		return fmt.Errorf("check lending escrow balance: %w", err)
	} else if bal.Sign() == 0 {
		log.Warn("lending escrow is empty, draw downs will fail until it is funded")
	}

	loansEngine := loans.NewEngine(loans.NewLedger(state), consensusEngine, store)
	loansEngine.SetAddresses(loansAddr, lendingEscrow, collateralEscrow)
	loansEngine.SetTokens(lendingToken, lendingToken.Symbol(), collateralToken, collateralToken.Symbol())
	loansEngine.SetOracle(prices)
	loansEngine.SetPauses(store)
	loansEngine.SetEmitter(emitter)
	loansEngine.SetLogger(log)

	log.Info("crednet node ready",
		"chainId", cfg.ChainID,
		"consensusAddress", consensusAddr.String(),
		"loansAddress", loansAddr.String(),
		"signers", registry.SignerCount(),
		"lendingToken", lendingToken.Symbol(),
		"collateralToken", collateralToken.Symbol(),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	server := &http.Server{Addr: *metricsAddr, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func loadConfig(path string) (*config.ProtocolConfig, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			cfg := config.ProtocolConfig{}.Normalise()
			return &cfg, nil
		}
		return nil, fmt.Errorf("stat config %s: %w", path, err)
	}
	return config.Load(path)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "crednetd:", err)
		os.Exit(1)
	}
}
