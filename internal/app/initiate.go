package app

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/clock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/config"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goroutine"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/hash"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/jwt"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/mail"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/messaging"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/router"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/storage"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/uid"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/validator"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/constant"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/emailtemplate"
	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/segmentio/kafka-go"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const (
	minHMACSecretLen = 32
	pingTimeout      = 5 * time.Second
)

//go:embed authz_model.conf
var authzModel string

// must ends startup when a step fails.
func must(err error, msg string, kv ...any) {
	if err == nil {
		return
	}
	slog.Error(msg, append(kv, "error", err)...)
	os.Exit(1)
}

// trimmed reads a string key without surrounding whitespace.
func (a *App) trimmed(key string) string {
	return strings.TrimSpace(a.config.GetString(key))
}

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	must(err, "failed to init config", "path", path)

	if tz := cfg.GetString("app.tz"); tz != "" {
		//nolint:errcheck,gosec // TZ is advisory
		os.Setenv("TZ", tz)
	}

	a.config = cfg
	a.onClose("Config", func(context.Context) error { return cfg.Close() })
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		LogLevel:         a.config.GetString("instrument.log_level"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		MaskEmailFields:  a.config.GetArray("instrument.log_mask_email_fields"),
	})
	must(err, "failed to init instrumentation")

	a.ins = ins
	a.onClose("Instrument", ins.Shutdown)
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))

	secret := a.config.GetString("hash.hmac.secret")
	if len(secret) < minHMACSecretLen {
		slog.Error("failed to init hmac, secret is too short", "min_bytes", minHMACSecretLen)
		os.Exit(1)
	}
	a.hmac = hash.NewHMACSHA256(secret, a.config.GetArray("hash.hmac.retired_secrets")...)

	v, err := validator.NewV10Validator()
	must(err, "failed to init validator")
	a.validator = v

	snow, err := uid.NewSnowflake(a.config.GetInt64("app.node_id"))
	must(err, "failed to init snowflake", "node_id", a.config.GetInt64("app.node_id"))
	a.uid = snow
}

func (a *App) initJWT() {
	j, err := jwt.NewHS512(jwt.Config{
		Secret:    []byte(a.config.GetString("jwt.secret")),
		Issuer:    a.config.GetString("jwt.issuer"),
		Audiences: a.config.GetArray("jwt.audiences"),
		TTL:       a.config.GetMinute("jwt.ttl_minutes"),
		Leeway:    a.config.GetSecond("jwt.leeway_seconds"),
		Clock:     a.clock,
		UUID:      a.uuid,
	})
	must(err, "failed to init jwt")
	a.jwt = j
}

func (a *App) initDatabase() {
	url := a.trimmed("database.url")
	if url == "" {
		slog.Warn("database url is empty, profiles and delivery logs will not be persisted")
		return
	}

	pc, err := pgxpool.ParseConfig(url)
	must(err, "failed to parse database url")

	pc.MaxConns = a.config.GetInt32("database.pool.max_conns")
	pc.MinConns = a.config.GetInt32("database.pool.min_conns")
	pc.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	pc.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	pc.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, pc)
	must(err, "failed to create database pool")

	ctx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	must(pool.Ping(ctx), "failed to ping database")

	a.dbConn = pool
	a.onClose("Database", func(context.Context) error {
		pool.Close()
		return nil
	})
}

func (a *App) initCache() {
	url := a.trimmed("redis.url")
	if url == "" {
		slog.Warn("redis url is empty, issuance locks are kept in process memory")
		return
	}

	opt, err := redis.ParseURL(url)
	must(err, "failed to parse redis url")

	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(a.ctx, pingTimeout)
	defer cancel()
	must(rdb.Ping(ctx).Err(), "failed to ping redis")

	a.cacheConn = rdb
	a.onClose("Redis", func(context.Context) error { return rdb.Close() })
}

func (a *App) initMail() {
	driver := mail.ParseDriver(a.config.GetString("mail.driver"))
	from := a.config.GetString("mail.from")

	m, err := mail.NewFromDriver(driver, mail.FactoryOptions{
		SMTP: mail.SMTPConfig{
			Host:     a.config.GetString("mail.smtp.host"),
			Port:     a.config.GetInt("mail.smtp.port"),
			Username: a.config.GetString("mail.smtp.username"),
			Password: a.config.GetString("mail.smtp.password"),
			From:     from,
		},
		Brevo: mail.BrevoConfig{
			APIKey:   a.config.GetString("mail.brevo.api_key"),
			Endpoint: a.config.GetString("mail.brevo.endpoint"),
			From:     from,
			Timeout:  a.config.GetSecond("mail.brevo.timeout_seconds"),
		},
	})
	must(err, "failed to init mail", "driver", string(driver))

	a.mail = m
	a.onClose("Mail", func(context.Context) error { return m.Close() })
}

// gcsClientOptions turns the templates.storage.gcs.* keys into client options.
// Inline JSON credentials win over a credentials file.
func (a *App) gcsClientOptions() ([]option.ClientOption, error) {
	const prefix = "templates.storage.gcs."

	var opts []option.ClientOption
	if a.config.GetBool(prefix + "without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}

	creds := a.config.GetBinary(prefix + "credentials_json")
	if file := a.trimmed(prefix + "credentials_file"); len(creds) == 0 && file != "" {
		// #nosec G304 -- path comes from the operator's config
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		creds = b
	}
	if len(creds) > 0 {
		c, err := google.CredentialsFromJSON(a.ctx, creds, gcs.ScopeReadOnly)
		if err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentials(c))
	}

	if ep := a.trimmed(prefix + "endpoint"); ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}
	return opts, nil
}

func (a *App) initStorage() {
	if !a.config.GetBool("templates.storage.enabled") {
		return
	}

	driver := a.trimmed("templates.storage.driver")

	var gcsOpts []option.ClientOption
	if driver == storage.DriverGCS {
		var err error
		gcsOpts, err = a.gcsClientOptions()
		must(err, "failed to load gcs credentials")
	}

	s3 := func(key string) string { return a.trimmed("templates.storage.s3." + key) }
	minio := func(key string) string { return a.trimmed("templates.storage.minio." + key) }

	stg, err := storage.NewFromDriver(a.ctx, driver, storage.FactoryOptions{
		Bucket: a.trimmed("templates.storage.bucket"),
		S3: storage.S3Options{
			Region:       s3("region"),
			Endpoint:     s3("endpoint"),
			AccessKey:    s3("access_key"),
			SecretKey:    s3("secret_key"),
			SessionToken: s3("session_token"),
			UsePathStyle: a.config.GetBool("templates.storage.s3.use_path_style"),
		},
		GCS: storage.GCSOptions{ClientOptions: gcsOpts},
		MinIO: storage.MinIOOptions{
			Region:       minio("region"),
			Endpoint:     minio("endpoint"),
			AccessKey:    minio("access_key"),
			SecretKey:    minio("secret_key"),
			SessionToken: minio("session_token"),
			UseSSL:       a.config.GetBool("templates.storage.minio.use_ssl"),
		},
	})
	must(err, "failed to init template storage", "driver", driver)

	a.storage = stg
	a.onClose("Storage", func(context.Context) error { return stg.Close() })
}

func (a *App) initTemplates() {
	reg, err := emailtemplate.New(map[string]any{
		"company_name":  a.config.GetString("templates.company_name"),
		"support_email": a.config.GetString("templates.support_email"),
		"year":          a.clock.Now().Format("2006"),
	})
	must(err, "failed to init email templates")

	if a.storage != nil {
		prefix := a.config.GetString("templates.storage.prefix")
		n := reg.LoadOverrides(a.ctx, a.storage, prefix)
		slog.Info("email template overrides loaded", "count", n, "prefix", prefix)
	}

	a.templates = reg
}

// nsqConfig reads the timeouts shared by producer and consumer under prefix.
func (a *App) nsqConfig(prefix string) *nsq.Config {
	cfg := nsq.NewConfig()
	cfg.MaxInFlight = a.config.GetInt(prefix + "max_in_flight")
	cfg.DialTimeout = a.config.GetSecond(prefix + "dial_timeout_seconds")
	cfg.ReadTimeout = a.config.GetSecond(prefix + "read_timeout_seconds")
	cfg.WriteTimeout = a.config.GetSecond(prefix + "write_timeout_seconds")
	return cfg
}

func (a *App) natsOptions() []nats.Option {
	const p = "messaging.nats."
	return []nats.Option{
		nats.Name(a.config.GetString(p + "name")),
		nats.MaxReconnects(a.config.GetInt(p + "max_reconnects")),
		nats.Timeout(a.config.GetSecond(p + "timeout_seconds")),
		nats.ReconnectWait(a.config.GetSecond(p + "reconnect_wait_seconds")),
		nats.PingInterval(a.config.GetSecond(p + "ping_interval_seconds")),
		nats.MaxPingsOutstanding(a.config.GetInt(p + "max_pings_outstanding")),
		nats.RetryOnFailedConnect(a.config.GetBool(p + "retry_on_failed_connect")),
	}
}

func (a *App) initMessaging() {
	const consumer = "messaging.nsq.consumer_config."

	cc := a.nsqConfig(consumer)
	cc.MaxAttempts = a.config.GetUint16(consumer + "max_attempts")
	cc.LookupdPollInterval = a.config.GetSecond(consumer + "lookupd_poll_interval_seconds")
	cc.DefaultRequeueDelay = a.config.GetSecond(consumer + "default_requeue_delay_seconds")
	cc.MaxRequeueDelay = a.config.GetSecond(consumer + "max_requeue_delay_seconds")

	var pubsubOpts []option.ClientOption
	if ep := a.trimmed("messaging.pubsub.endpoint"); ep != "" {
		pubsubOpts = append(pubsubOpts, option.WithEndpoint(ep), option.WithoutAuthentication())
	}

	driver := a.config.GetString("messaging.driver")
	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr:         a.config.GetString("messaging.nsq.producer_addr"),
			ConsumerNSQDAddrs:    a.config.GetArray("messaging.nsq.consumer_nsqd_addrs"),
			ConsumerLookupdAddrs: a.config.GetArray("messaging.nsq.consumer_lookupd_addrs"),
			ProducerConfig:       a.nsqConfig("messaging.nsq.producer_config."),
			ConsumerConfig:       cc,
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
			Dialer: &kafka.Dialer{
				ClientID:  a.config.GetString("messaging.kafka.client_id"),
				Timeout:   a.config.GetSecond("messaging.kafka.dial_timeout_seconds"),
				DualStack: true,
			},
		},
		NATS: messaging.NATSConfig{
			URL:        a.config.GetString("messaging.nats.url"),
			Stream:     a.config.GetString("messaging.nats.stream"),
			MaxDeliver: a.config.GetInt("messaging.nats.max_deliver"),
			Options:    a.natsOptions(),
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: pubsubOpts,
		},
		MemoryBuffer:   a.config.GetInt("messaging.memory.buffer"),
		ConnectRetries: a.config.GetUint64("messaging.connect_retries"),
		ConnectBackoff: a.config.GetSecond("messaging.connect_backoff_seconds"),
	})
	must(err, "failed to init messaging", "driver", driver)

	a.messaging = client
	a.onClose("Messaging", func(context.Context) error { return client.Close() })
}

// initCasbin loads the role model and grants roles to the JWT subjects listed
// under authz.admins and authz.viewers.
func (a *App) initCasbin() {
	m, err := model.NewModelFromString(authzModel)
	must(err, "failed to parse authz model")

	e, err := casbin.NewEnforcer(m)
	must(err, "failed to init casbin")

	_, err = e.AddPolicies([][]string{
		{constant.RoleAdmin, "*", "*"},
		{constant.RoleViewer, constant.ObjectVerification, constant.ActionRead},
	})
	must(err, "failed to add casbin policies")

	grants := map[string]string{
		constant.RoleAdmin:  "authz.admins",
		constant.RoleViewer: "authz.viewers",
	}
	for role, key := range grants {
		for _, sub := range a.config.GetArray(key) {
			_, err := e.AddGroupingPolicy(sub, role)
			must(err, "failed to grant casbin role", "subject", sub, "role", role)
		}
	}

	a.casbin = e
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
	})
	a.router.GET("/health", a.health, router.Public())

	handler := cors.New(cors.Options{
		AllowedOrigins:   a.config.GetArray("app.server.cors"),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", router.HeaderCorrelationID, router.HeaderRequestID},
		ExposedHeaders:   []string{router.HeaderCorrelationID, "Retry-After"},
		AllowCredentials: true,
	}).Handler(a.router)

	const p = "app.server.http."
	a.httpServer = &http.Server{
		Addr:              a.config.GetString(p + "address"),
		Handler:           handler,
		ReadTimeout:       a.config.GetSecond(p + "read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond(p + "read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond(p + "write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond(p + "idle_timeout_seconds"),
	}
}
