package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/cascadelabs/feerouter/router/pkg/adapters/damm"
	"github.com/cascadelabs/feerouter/router/pkg/adapters/spltoken"
	"github.com/cascadelabs/feerouter/router/pkg/adapters/streamflow"
	"github.com/cascadelabs/feerouter/router/pkg/crank"
	"github.com/cascadelabs/feerouter/router/pkg/distribution"
	"github.com/cascadelabs/feerouter/router/pkg/events"
	"github.com/cascadelabs/feerouter/router/pkg/metrics"
	"github.com/cascadelabs/feerouter/router/pkg/pg"
	"github.com/cascadelabs/feerouter/router/pkg/policy"
	"github.com/cascadelabs/feerouter/router/pkg/position"
	"github.com/cascadelabs/feerouter/router/pkg/server"
	"github.com/cascadelabs/feerouter/utils/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	listenAddrFlag := flag.String("listen-addr", ":8080", "HTTP listen address (or set LISTEN_ADDR env var)")

	// PostgreSQL configuration
	pgHostFlag := flag.String("pg-host", "localhost", "PostgreSQL host (or set POSTGRES_HOST env var)")
	pgPortFlag := flag.String("pg-port", "5432", "PostgreSQL port (or set POSTGRES_PORT env var)")
	pgDatabaseFlag := flag.String("pg-database", "", "PostgreSQL database (or set POSTGRES_DB env var)")
	pgUsernameFlag := flag.String("pg-username", "", "PostgreSQL username (or set POSTGRES_USER env var)")
	pgPasswordFlag := flag.String("pg-password", "", "PostgreSQL password (or set POSTGRES_PASSWORD env var)")
	migrateFlag := flag.Bool("migrate", false, "Run database migrations and exit")

	// Solana configuration
	rpcURLFlag := flag.String("rpc-url", solanarpc.MainNetBeta_RPC, "Solana RPC endpoint (or set SOLANA_RPC_URL env var)")
	ammProgramFlag := flag.String("amm-program", "", "cp-amm program id (or set AMM_PROGRAM_ID env var)")
	routerProgramFlag := flag.String("router-program", "", "fee router program id for PDA derivation (or set ROUTER_PROGRAM_ID env var)")
	keypairFlag := flag.String("keypair", "", "path to the operator keypair (or set KEYPAIR_PATH env var)")

	// ClickHouse events sink (optional)
	clickhouseAddrFlag := flag.String("clickhouse-addr", "", "ClickHouse address for the events sink, empty disables it (or set CLICKHOUSE_ADDR env var)")
	clickhouseDatabaseFlag := flag.String("clickhouse-database", "default", "ClickHouse database (or set CLICKHOUSE_DATABASE env var)")
	clickhouseUsernameFlag := flag.String("clickhouse-username", "default", "ClickHouse username (or set CLICKHOUSE_USERNAME env var)")
	clickhousePasswordFlag := flag.String("clickhouse-password", "", "ClickHouse password (or set CLICKHOUSE_PASSWORD env var)")
	clickhouseSecureFlag := flag.Bool("clickhouse-secure", false, "Enable TLS for ClickHouse (or set CLICKHOUSE_SECURE=true env var)")

	flag.Parse()

	overrideString(listenAddrFlag, "LISTEN_ADDR")
	overrideString(pgHostFlag, "POSTGRES_HOST")
	overrideString(pgPortFlag, "POSTGRES_PORT")
	overrideString(pgDatabaseFlag, "POSTGRES_DB")
	overrideString(pgUsernameFlag, "POSTGRES_USER")
	overrideString(pgPasswordFlag, "POSTGRES_PASSWORD")
	overrideString(rpcURLFlag, "SOLANA_RPC_URL")
	overrideString(ammProgramFlag, "AMM_PROGRAM_ID")
	overrideString(routerProgramFlag, "ROUTER_PROGRAM_ID")
	overrideString(keypairFlag, "KEYPAIR_PATH")
	overrideString(clickhouseAddrFlag, "CLICKHOUSE_ADDR")
	overrideString(clickhouseDatabaseFlag, "CLICKHOUSE_DATABASE")
	overrideString(clickhouseUsernameFlag, "CLICKHOUSE_USERNAME")
	overrideString(clickhousePasswordFlag, "CLICKHOUSE_PASSWORD")
	if os.Getenv("CLICKHOUSE_SECURE") == "true" {
		*clickhouseSecureFlag = true
	}

	log := logger.New(*verboseFlag)

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			Environment:      os.Getenv("SENTRY_ENVIRONMENT"),
			Release:          version,
			TracesSampleRate: 0.1,
		}); err != nil {
			return fmt.Errorf("failed to init sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	pgCfg := pg.Config{
		Logger:   log,
		Host:     *pgHostFlag,
		Port:     *pgPortFlag,
		Database: *pgDatabaseFlag,
		Username: *pgUsernameFlag,
		Password: *pgPasswordFlag,
	}

	if *migrateFlag {
		return pg.MigrateUp(pgCfg)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pg.NewPool(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ammProgram, err := solana.PublicKeyFromBase58(*ammProgramFlag)
	if err != nil {
		return fmt.Errorf("invalid --amm-program: %w", err)
	}
	routerProgram, err := solana.PublicKeyFromBase58(*routerProgramFlag)
	if err != nil {
		return fmt.Errorf("invalid --router-program: %w", err)
	}
	operator, err := solana.PrivateKeyFromSolanaKeygenFile(*keypairFlag)
	if err != nil {
		return fmt.Errorf("failed to load keypair: %w", err)
	}

	rpcClient := solanarpc.New(*rpcURLFlag)

	ammClient, err := damm.NewClient(damm.ClientConfig{
		Logger:    log,
		RPC:       rpcClient,
		ProgramID: ammProgram,
		Payer:     operator,
	})
	if err != nil {
		return err
	}
	vestingReader, err := streamflow.NewReader(streamflow.ReaderConfig{
		Logger: log,
		RPC:    rpcClient,
	})
	if err != nil {
		return err
	}
	tokenClient, err := spltoken.NewClient(spltoken.ClientConfig{
		Logger:    log,
		RPC:       rpcClient,
		Authority: operator,
	})
	if err != nil {
		return err
	}

	var sink events.Sink
	if *clickhouseAddrFlag != "" {
		chSink, err := events.NewClickHouseSink(ctx, events.ClickHouseSinkConfig{
			Logger:   log,
			Addr:     *clickhouseAddrFlag,
			Database: *clickhouseDatabaseFlag,
			Username: *clickhouseUsernameFlag,
			Password: *clickhousePasswordFlag,
			Secure:   *clickhouseSecureFlag,
		})
		if err != nil {
			return err
		}
		defer chSink.Close()
		sink = chSink
	}
	emitter := events.NewEmitter(log, sink)

	distStore, err := distribution.NewStore(distribution.StoreConfig{Logger: log, DB: pool})
	if err != nil {
		return err
	}
	policyStore, err := policy.NewStore(policy.StoreConfig{Logger: log, DB: pool})
	if err != nil {
		return err
	}
	positionStore, err := position.NewStore(position.StoreConfig{Logger: log, DB: pool})
	if err != nil {
		return err
	}

	initializer, err := position.NewInitializer(position.InitializerConfig{
		Logger:    log,
		Store:     positionStore,
		AMM:       ammClient,
		Emitter:   emitter,
		ProgramID: routerProgram,
	})
	if err != nil {
		return err
	}

	engine, err := crank.NewEngine(crank.EngineConfig{
		Logger:       log,
		Distribution: distStore,
		Policies:     policyStore,
		Positions:    positionStore,
		AMM:          ammClient,
		Vesting:      vestingReader,
		Token:        tokenClient,
		Emitter:      emitter,
	})
	if err != nil {
		return err
	}

	metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)

	srv, err := server.New(server.Config{
		Logger:       log,
		ListenAddr:   *listenAddrFlag,
		VersionInfo:  server.VersionInfo{Version: version, Commit: commit, Date: date},
		Engine:       engine,
		Emitter:      emitter,
		Initializer:  initializer,
		Policies:     policyStore,
		Positions:    positionStore,
		Distribution: distStore,
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	return g.Wait()
}

func overrideString(flagValue *string, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		*flagValue = v
	}
}
