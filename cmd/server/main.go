package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	addresshandler "addresshub/internal/address/handler"
	addressservice "addresshub/internal/address/service"
	addressstore "addresshub/internal/address/store"
	"addresshub/internal/audit"
	"addresshub/internal/crypto"
	jwttoken "addresshub/internal/jwt_token"
	"addresshub/internal/ledger"
	lookuphandler "addresshub/internal/lookup/handler"
	lookupservice "addresshub/internal/lookup/service"
	lookupstore "addresshub/internal/lookup/store"
	orghandler "addresshub/internal/org/handler"
	orgservice "addresshub/internal/org/service"
	orgstore "addresshub/internal/org/store"
	"addresshub/internal/platform/config"
	"addresshub/internal/platform/httpserver"
	"addresshub/internal/platform/kafka"
	"addresshub/internal/platform/logger"
	"addresshub/internal/platform/metrics"
	"addresshub/internal/platform/postgres"
	platformredis "addresshub/internal/platform/redis"
	"addresshub/internal/platform/tracing"
	syncengine "addresshub/internal/sync"
	httptransport "addresshub/internal/transport/http"
)

// main wires dependencies, exposes the HTTP router and drives the background
// workers. Business logic lives in the internal service packages.
func main() {
	if err := run(); err != nil {
		slog.Error("addresshub exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Init(ctx, "addresshub", cfg.Tracing.Endpoint, cfg.Tracing.Insecure)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	m := metrics.New()

	cipher, err := crypto.New(crypto.Config{
		Key:      cfg.Encryption.Key,
		Password: cfg.Encryption.Password,
		Salt:     cfg.Encryption.Salt,
	})
	if err != nil {
		return err
	}

	// Stores: postgres when configured, in-memory otherwise. The memory
	// stores carry identical semantics and back local development.
	var (
		addrStore   addressStoreDeps
		orgStore    orgservice.Store
		lookupStore lookupservice.Store
		deps        httptransport.Deps
	)
	if cfg.Database.URL != "" {
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		addrStore = addressstore.NewPostgres(db)
		orgStore = orgstore.NewPostgres(db)
		lookupStore = lookupstore.NewPostgres(db)
		deps.DB = db
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		addrStore = addressstore.NewMemory()
		orgStore = orgstore.NewMemory()
		lookupStore = lookupstore.NewMemory()
	}

	rdb, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		deps.Redis = rdb
	}

	// Audit pipeline: events always reach the structured log; with brokers
	// configured they also flow to Kafka through the publisher inbox.
	var auditPublisher *audit.Publisher
	var auditWorker *audit.Worker
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.Config{
			Brokers:  cfg.Kafka.Brokers,
			ClientID: cfg.Kafka.ClientID,
		}, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		if err := producer.EnsureTopics(ctx, 3, cfg.Kafka.AuditTopic); err != nil {
			return err
		}
		auditPublisher = audit.NewPublisher(cfg.Audit.Buffer, log)
		auditWorker = audit.NewWorker(auditPublisher.Inbox(), producer, cfg.Kafka.AuditTopic, log)
	}

	ledgerClient := ledger.NewRPCClient(cfg.Ledger.RPCEndpoint, cfg.Ledger.Contract,
		ledger.WithLogger(log),
		ledger.WithDurationObserver(m.LedgerRequestDuration),
	)
	deps.Ledger = ledgerClient
	signers := ledger.NewStaticSigner(ledger.Signer(cfg.Ledger.Signer))

	var blobStore ledger.BlobStore
	if cfg.Ledger.IPFSAPIURL != "" {
		ipfs := ledger.NewIPFSClient(cfg.Ledger.IPFSAPIURL)
		blobStore = ipfs
		if rdb != nil {
			blobStore = ledger.NewCachedBlobStore(ipfs, rdb.Client, time.Hour, log)
		}
	}

	addressOpts := []addressservice.Option{
		addressservice.WithLogger(log),
		addressservice.WithMetrics(m),
		addressservice.WithLedger(ledgerClient, signers),
	}
	orgOpts := []orgservice.Option{orgservice.WithLogger(log)}
	lookupOpts := []lookupservice.Option{
		lookupservice.WithLogger(log),
		lookupservice.WithMetrics(m),
	}
	engineOpts := []syncengine.Option{
		syncengine.WithLogger(log),
		syncengine.WithMetrics(m),
	}
	if auditPublisher != nil {
		addressOpts = append(addressOpts, addressservice.WithAuditPublisher(auditPublisher))
		orgOpts = append(orgOpts, orgservice.WithAuditPublisher(auditPublisher))
		lookupOpts = append(lookupOpts, lookupservice.WithAuditPublisher(auditPublisher))
		engineOpts = append(engineOpts, syncengine.WithAuditPublisher(auditPublisher))
	}
	if blobStore != nil {
		engineOpts = append(engineOpts, syncengine.WithBlobStore(blobStore))
	}

	addressSvc := addressservice.New(addrStore, cipher, addressOpts...)
	orgSvc := orgservice.New(orgStore, addrStore, orgOpts...)
	lookupSvc := lookupservice.New(lookupStore, addrStore, orgSvc, cipher, lookupOpts...)

	engine := syncengine.New(addrStore, ledgerClient, signers, cipher,
		syncengine.Config{
			BatchSize:      cfg.Sync.BatchSize,
			RetryLimit:     cfg.Sync.RetryLimit,
			RetryBaseDelay: cfg.Sync.RetryBaseDelay,
		}, engineOpts...)
	scheduler := syncengine.NewScheduler(engine, cfg.Sync.Interval,
		syncengine.WithSchedulerLogger(log),
		syncengine.WithSchedulerMetrics(m),
	)

	jwtService := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience)
	jwtValidator := jwttoken.NewJWTServiceAdapter(jwtService)

	deps.Logger = log
	deps.Addresses = addresshandler.New(addressSvc, log, jwtValidator)
	deps.Orgs = orghandler.New(orgSvc, log, jwtValidator)
	deps.Lookups = lookuphandler.New(lookupSvc, log, jwtValidator)

	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(deps))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting addresshub", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		err := scheduler.Run(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if auditWorker != nil {
		g.Go(func() error {
			err := auditWorker.Run(gCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Info("received signal, shutting down", "signal", sig.String())
			cancel()
			return nil
		case <-gCtx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("addresshub shut down gracefully")
	return nil
}

// addressStoreDeps is the union of the store surfaces the address service,
// the org/lookup access checks and the sync engine pull from one
// implementation.
type addressStoreDeps interface {
	addressservice.Store
	syncengine.Store
	orgservice.AddressFinder
	lookupservice.AddressStore
}
