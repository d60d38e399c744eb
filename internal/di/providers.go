package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	drepo "FinYield/internal/domain/repository"
	"FinYield/internal/handler/api"
	mid "FinYield/internal/middleware"
	internalrepo "FinYield/internal/repository"
	"FinYield/internal/service/bcra"
	"FinYield/internal/service/broker"
	"FinYield/internal/service/ratelimit"
	"FinYield/internal/services/calendar"
	"FinYield/internal/services/valuation"
	"FinYield/internal/services/yield"
	"FinYield/internal/usecase"
	"FinYield/pkg/cache"
	pkgch "FinYield/pkg/clickhouse"
	"FinYield/pkg/config"
	xhttp "FinYield/pkg/http"
	pkgkafka "FinYield/pkg/kafka"
	"FinYield/pkg/logger"
	"FinYield/pkg/metrics"
	"FinYield/pkg/server"
)

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger. Warnings and errors are
// folded into a digest on the configured topic when Kafka is available.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: cfg.Log.TimeFormat,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.DigestTopic != "" && producer != nil {
		d := logger.NewDigest(logger.DigestConfig{
			Interval:  cfg.Log.DigestInterval,
			MaxUnique: cfg.Log.DigestMax,
			Topic:     cfg.Log.DigestTopic,
			Publisher: producer,
		})
		d.Start()
		l.AttachDigest(d)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() drepo.Metrics {
	pkgkafka.SetMetricsRegisterer(prometheus.DefaultRegisterer)
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and applies the schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func ProvideStore(ch *pkgch.Client, log *logger.Logger) *internalrepo.ClickHouseStore {
	return internalrepo.NewClickHouseStore(ch, log.With(logger.String("component", "clickhouse")))
}

// ProvideCache connects to Redis; it backs the quote store and the run lock.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	c, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Addr),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return c, nil
}

func ProvideQuoteStore(c cache.Service, cfg *config.Config) drepo.QuoteStore {
	return internalrepo.NewQuoteCache(c, cfg.Redis.KeyPrefix, cfg.Redis.TTL)
}

// Publisher ships both valuation results and quotes.
type Publisher interface {
	drepo.ResultPublisher
	drepo.QuotePublisher
}

// ProvidePublisher returns the Kafka publisher, or a no-op one when Kafka is
// disabled.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) Publisher {
	if producer == nil {
		return internalrepo.NopPublisher{}
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.ResultsTopic, cfg.Kafka.QuotesTopic)
}

func ProvideValuer(cfg *config.Config) *valuation.Valuer {
	return valuation.NewValuer(yield.WithGuess(cfg.Valuation.InitialGuess))
}

// ProvideRunnerConfig maps the valuation section onto the runner settings.
func ProvideRunnerConfig(cfg *config.Config) (usecase.RunnerConfig, error) {
	anchor, err := calendar.ParseAnchor(cfg.Valuation.Anchor)
	if err != nil {
		return usecase.RunnerConfig{}, err
	}
	return usecase.RunnerConfig{
		Location:        calendar.LoadLocation(cfg.Valuation.LocalTZ),
		Anchor:          anchor,
		LookbackDays:    cfg.Valuation.LookbackDays,
		IndexSeries:     cfg.Valuation.IndexSeries,
		DebugInstrument: cfg.Valuation.DebugInstrument,
		LoadTimeout:     cfg.Valuation.LoadTimeout,
		LockTTL:         cfg.Valuation.LockTTL,
	}, nil
}

func ProvideValuationRunner(
	store *internalrepo.ClickHouseStore,
	quotes drepo.QuoteStore,
	pub Publisher,
	lock cache.Service,
	m drepo.Metrics,
	log *logger.Logger,
	valuer *valuation.Valuer,
	rc usecase.RunnerConfig,
) *usecase.ValuationRunner {
	return usecase.NewValuationRunner(store, store, store, quotes, store, pub, lock, m,
		log.With(logger.String("component", "valuation")), valuer, rc)
}

func ProvideAdhocValuer(store *internalrepo.ClickHouseStore, valuer *valuation.Valuer, rc usecase.RunnerConfig) *usecase.AdhocValuer {
	return usecase.NewAdhocValuer(store, valuer, rc)
}

// ProvideQuoteCollector builds the broker stream and its push pipeline, or
// returns nil when the broker feed is disabled.
func ProvideQuoteCollector(
	cfg *config.Config,
	quotes drepo.QuoteStore,
	pub Publisher,
	m drepo.Metrics,
	log *logger.Logger,
) *usecase.QuoteCollector {
	if !cfg.Broker.Enabled {
		return nil
	}
	l := log.With(logger.String("component", "quotes"))
	stream := broker.New(broker.Config{
		Token:          cfg.Broker.Token,
		WebSocketURL:   cfg.Broker.WebSocketURL,
		Market:         cfg.Broker.Market,
		Symbols:        cfg.Broker.Symbols,
		ReconnectDelay: cfg.Broker.ReconnectDelay,
		PingInterval:   cfg.Broker.PingInterval,
	}, l)
	proc := usecase.NewQuoteProcessor(pub, quotes, m, cfg.Broker.Backend)
	pipe := mid.NewQuotePipeline(proc, m,
		mid.WithPushInterval(cfg.Broker.PushInterval),
		mid.WithFXReferences(cfg.Broker.FXDollarSymbol, cfg.Broker.FXLocalSymbol),
		mid.WithLogger(l),
	)
	return usecase.NewQuoteCollector(stream, pipe, m, l)
}

func ProvideIndexSync(cfg *config.Config, store *internalrepo.ClickHouseStore, m drepo.Metrics, log *logger.Logger) *usecase.IndexSync {
	feed := bcra.New(bcra.Config{
		BaseURL:            cfg.Index.BaseURL,
		Series:             cfg.Valuation.IndexSeries,
		Limit:              cfg.Index.Limit,
		Timeout:            cfg.Index.Timeout,
		InsecureSkipVerify: cfg.Index.InsecureSkipVerify,
	})
	return usecase.NewIndexSync(feed, store, m, log.With(logger.String("component", "index")), cfg.Index.SeriesID)
}

func ProvideScheduler(
	cfg *config.Config,
	runner *usecase.ValuationRunner,
	collector *usecase.QuoteCollector,
	syncer *usecase.IndexSync,
	log *logger.Logger,
) (*usecase.Scheduler, error) {
	window, err := usecase.ParseWindow(cfg.Valuation.Window.Start, cfg.Valuation.Window.Stop)
	if err != nil {
		return nil, err
	}
	var c usecase.Collector
	if collector != nil {
		c = collector
	}
	s := usecase.NewScheduler(runner, c, log.With(logger.String("component", "scheduler")),
		cfg.Valuation.Interval, window, calendar.LoadLocation(cfg.Valuation.LocalTZ))
	return s.WithIndexSync(syncer, cfg.Index.SyncInterval), nil
}

// ProvideKafkaConsumer creates the quote consumer. It only runs when quotes
// travel over Kafka.
func ProvideKafkaConsumer(cfg *config.Config, log *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Broker.Backend != usecase.BackendKafka {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log.With(logger.String("component", "kafka")),
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

func ProvideKafkaQuotesHandler(cfg *config.Config, quotes drepo.QuoteStore, m drepo.Metrics) *usecase.KafkaQuotesHandler {
	return usecase.NewKafkaQuotesHandler(cfg.Kafka.QuotesTopic, quotes, m)
}

func ProvideValuationsHandler(cfg *config.Config, log *logger.Logger, store *internalrepo.ClickHouseStore, quotes drepo.QuoteStore, adhoc *usecase.AdhocValuer) *api.ValuationsHandler {
	h := api.NewValuationsHandler(log.With(logger.String("component", "api")), store, quotes, adhoc)
	if cfg.Server.ComputeRate > 0 {
		h.WithComputeLimit(ratelimit.New(cfg.Server.ComputeBurst, cfg.Server.ComputeRate))
	}
	return h
}

func ProvideHTTPServer(cfg *config.Config, log *logger.Logger, h *api.ValuationsHandler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, prometheus.DefaultRegisterer, prometheus.DefaultGatherer))
	}
	return xhttp.NewServer(log.With(logger.String("component", "http")), []xhttp.Handler{h}, opts...)
}

// ProvideApp assembles the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	scheduler *usecase.Scheduler,
	runner *usecase.ValuationRunner,
	syncer *usecase.IndexSync,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaQuotesHandler,
	httpServer *xhttp.Server,
	chClient *pkgch.Client,
	c cache.Service,
	pub Publisher,
) *server.App {
	return server.New(server.Deps{
		Config:     cfg,
		Logger:     log,
		Scheduler:  scheduler,
		Runner:     runner,
		Syncer:     syncer,
		Consumer:   consumer,
		Handler:    kh,
		HTTPServer: httpServer,
		ClickHouse: chClient,
		Cache:      c,
		Publisher:  pub,
	})
}
