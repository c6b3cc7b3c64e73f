package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"course-video-service/application/serviceimpl"
	"course-video-service/domain/ports"
	"course-video-service/domain/repositories"
	"course-video-service/domain/services"
	"course-video-service/infrastructure/locking"
	"course-video-service/infrastructure/messaging"
	natspkg "course-video-service/infrastructure/nats"
	"course-video-service/infrastructure/postgres"
	"course-video-service/infrastructure/rabbitmq"
	redispkg "course-video-service/infrastructure/redis"
	"course-video-service/infrastructure/storage"
	"course-video-service/infrastructure/telegram"
	"course-video-service/infrastructure/transcoder"
	"course-video-service/interfaces/api/handlers"
	"course-video-service/pkg/config"
	"course-video-service/pkg/logger"
	"course-video-service/pkg/scheduler"
)

// Role process ที่ใช้ container นี้
type Role string

const (
	RoleAPI    Role = "api"
	RoleWorker Role = "worker"
)

const (
	queueDriverNATS     = "nats"
	queueDriverRabbitMQ = "rabbitmq"
	queueDriverMemory   = "memory"
)

type Container struct {
	Role   Role
	Config *config.Config

	// Infrastructure
	DB             *gorm.DB
	RedisClient    *redispkg.Client // nil = ใช้ lock ใน process
	NATSClient     *natspkg.Client
	RabbitMQClient *rabbitmq.Client
	Storage        ports.StoragePort
	LocalStorage   *storage.LocalStorage // non-nil เฉพาะ STORAGE_TYPE=local
	Transcoder     ports.TranscoderPort  // nil บน API ที่ไม่ได้รัน worker ในตัว
	Lock           ports.LockPort
	Notifier       ports.NotifierPort
	JobQueue       ports.JobQueuePort
	JobConsumer    ports.JobConsumerPort // nil บน API (ยกเว้น memory driver)
	Scheduler      *scheduler.GocronScheduler

	// Repositories
	VideoRepository         repositories.VideoRepository
	UploadSessionRepository repositories.UploadSessionRepository
	LessonRepository        repositories.LessonRepository
	EnrollmentRepository    repositories.EnrollmentRepository

	// Services
	TranscodingService *serviceimpl.TranscodingServiceImpl
	VideoService       services.VideoService
	UploadService      services.UploadService
	AccessService      services.AccessService
	StreamTokenService services.StreamTokenService

	// Background jobs
	StuckDetector *serviceimpl.StuckDetectorService
	UploadSweeper *serviceimpl.UploadSweeperService
}

func NewContainer(role Role) *Container {
	return &Container{Role: role}
}

// RunsWorker API รัน worker ในตัวเมื่อ queue เป็น memory (API และ worker อยู่ process เดียว)
func (c *Container) RunsWorker() bool {
	return c.Role == RoleWorker || c.Config.Queue.Driver == queueDriverMemory
}

func (c *Container) Initialize(ctx context.Context) error {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"config", c.initConfig},
		{"logger", c.initLogger},
		{"database", c.initDatabase},
		{"lock", c.initLock},
		{"storage", c.initStorage},
		{"queue", c.initQueue},
		{"transcoder", c.initTranscoder},
		{"notifier", c.initNotifier},
		{"repositories", c.initRepositories},
		{"services", c.initServices},
		{"scheduler", c.initScheduler},
	}

	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("init %s: %w", step.name, err)
		}
	}

	logger.Info("Container initialized", "role", c.Role, "queue", c.Config.Queue.Driver, "storage", c.Storage.GetProviderName())
	return nil
}

func (c *Container) initConfig(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = cfg
	return nil
}

func (c *Container) initLogger(ctx context.Context) error {
	if err := logger.Init(c.Config.Log, string(c.Role)); err != nil {
		return err
	}

	logger.Info("Logger initialized",
		"level", c.Config.Log.Level,
		"format", c.Config.Log.Format,
		"output", c.Config.Log.Output,
	)
	return nil
}

func (c *Container) initDatabase(ctx context.Context) error {
	db, err := postgres.NewDatabase(postgres.DatabaseConfig{
		Host:     c.Config.Database.Host,
		Port:     c.Config.Database.Port,
		User:     c.Config.Database.User,
		Password: c.Config.Database.Password,
		DBName:   c.Config.Database.DBName,
		SSLMode:  c.Config.Database.SSLMode,
		LogLevel: c.Config.Log.Level,
	})
	if err != nil {
		return err
	}
	c.DB = db
	logger.Info("Database connected", "host", c.Config.Database.Host, "db", c.Config.Database.DBName)

	// migrate เฉพาะฝั่ง API (worker อาจ start ก่อนและแข่งกัน migrate)
	if c.Role == RoleAPI {
		if err := postgres.Migrate(db); err != nil {
			return err
		}
		logger.Info("Database migrated")
	}
	return nil
}

// initLock redis lock เมื่อมี REDIS_URL, ไม่งั้นใช้ lock ใน process
func (c *Container) initLock(ctx context.Context) error {
	if c.Config.Redis.URL == "" {
		c.Lock = locking.NewLocalLock()
		if c.Config.Queue.Driver != "memory" {
			logger.Warn("REDIS_URL not set, using in-process transcode lock (single worker process only)",
				"queue_driver", c.Config.Queue.Driver)
		}
		return nil
	}

	client, err := redispkg.NewClient(ctx, &c.Config.Redis)
	if err != nil {
		return err
	}
	c.RedisClient = client
	c.Lock = redispkg.NewLock(client)
	return nil
}

func (c *Container) initStorage(ctx context.Context) error {
	switch c.Config.Storage.Type {
	case "s3":
		s3Storage, err := storage.NewS3Storage(ctx, storage.S3StorageConfig{
			Endpoint:  c.Config.Storage.S3.Endpoint,
			AccessKey: c.Config.Storage.S3.AccessKey,
			SecretKey: c.Config.Storage.S3.SecretKey,
			Bucket:    c.Config.Storage.S3.Bucket,
			UseSSL:    c.Config.Storage.S3.UseSSL,
			Region:    c.Config.Storage.S3.Region,
			PublicURL: c.Config.Storage.S3.PublicURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		c.Storage = s3Storage
		logger.Info("S3 storage initialized",
			"endpoint", c.Config.Storage.S3.Endpoint,
			"bucket", c.Config.Storage.S3.Bucket,
		)

	case "r2":
		r2Storage, err := storage.NewR2Storage(ctx, storage.R2StorageConfig{
			Endpoint:  c.Config.Storage.R2.Endpoint,
			AccessKey: c.Config.Storage.R2.AccessKey,
			SecretKey: c.Config.Storage.R2.SecretKey,
			Bucket:    c.Config.Storage.R2.Bucket,
			PublicURL: c.Config.Storage.R2.PublicURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize R2 storage: %w", err)
		}
		c.Storage = r2Storage
		logger.Info("R2 storage initialized", "bucket", c.Config.Storage.R2.Bucket)

	default:
		localStorage, err := storage.NewLocalStorage(storage.LocalStorageConfig{
			BasePath:   c.Config.Storage.Local.BasePath,
			BaseURL:    c.Config.App.BaseURL,
			SigningKey: c.Config.Storage.Local.SigningKey,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize local storage: %w", err)
		}
		c.Storage = localStorage
		c.LocalStorage = localStorage
		logger.Info("Local storage initialized", "path", c.Config.Storage.Local.BasePath)
	}

	return nil
}

// initQueue publish ฝั่ง API, consume ฝั่ง worker
func (c *Container) initQueue(ctx context.Context) error {
	switch c.Config.Queue.Driver {
	case queueDriverNATS:
		client, err := natspkg.NewClient(ctx, natspkg.ClientConfig{
			URL:  c.Config.NATS.URL,
			Name: fmt.Sprintf("%s-%s", c.Config.App.Name, c.Role),
		})
		if err != nil {
			return err
		}
		c.NATSClient = client
		c.JobQueue = messaging.NewNATSJobQueue(client, natspkg.NewPublisher(client))
		if c.RunsWorker() {
			consumer := natspkg.NewConsumer(client, natspkg.ConsumerConfig{
				Concurrency: c.Config.Transcode.MaxConcurrentJobs,
			})
			c.JobConsumer = messaging.NewNATSJobConsumer(consumer)
		}

	case queueDriverRabbitMQ:
		client, err := rabbitmq.NewClient(ctx, rabbitmq.ClientConfig{
			URL:   c.Config.RabbitMQ.URL,
			Queue: c.Config.RabbitMQ.Queue,
		})
		if err != nil {
			return err
		}
		c.RabbitMQClient = client

		prefetch := c.Config.RabbitMQ.Prefetch
		if prefetch < c.Config.Transcode.MaxConcurrentJobs {
			prefetch = c.Config.Transcode.MaxConcurrentJobs
		}
		amqpQueue := messaging.NewAMQPJobQueue(client, prefetch)
		c.JobQueue = amqpQueue
		if c.RunsWorker() {
			c.JobConsumer = amqpQueue
		}

	case queueDriverMemory:
		memQueue := messaging.NewMemoryJobQueue(100, c.Config.Transcode.MaxConcurrentJobs)
		c.JobQueue = memQueue
		c.JobConsumer = memQueue
		logger.Warn("Using in-memory job queue: jobs are lost on restart")

	default:
		return fmt.Errorf("unknown queue driver %q", c.Config.Queue.Driver)
	}

	logger.Info("Job queue initialized", "driver", c.Config.Queue.Driver, "consumer", c.JobConsumer != nil)
	return nil
}

func (c *Container) initTranscoder(ctx context.Context) error {
	if !c.RunsWorker() {
		return nil
	}

	t, err := transcoder.NewFFmpegTranscoder(transcoder.FFmpegConfig{
		FFmpegPath:         c.Config.Transcode.FFmpegPath,
		FFprobePath:        c.Config.Transcode.FFprobePath,
		UseHardwareEncoder: c.Config.Transcode.UseHardwareEncoder,
	})
	if err != nil {
		return err
	}
	c.Transcoder = t
	return nil
}

func (c *Container) initNotifier(ctx context.Context) error {
	notifier := telegram.NewTelegramNotifier(telegram.Config{
		BotToken: c.Config.Telegram.BotToken,
		ChatID:   c.Config.Telegram.ChatID,
	})
	c.Notifier = notifier
	logger.Info("Notifier initialized", "telegram_enabled", notifier.IsEnabled())
	return nil
}

func (c *Container) initRepositories(ctx context.Context) error {
	c.VideoRepository = postgres.NewVideoRepository(c.DB)
	c.UploadSessionRepository = postgres.NewUploadSessionRepository(c.DB)
	c.LessonRepository = postgres.NewLessonRepository(c.DB)
	c.EnrollmentRepository = postgres.NewEnrollmentRepository(c.DB)
	return nil
}

func (c *Container) initServices(ctx context.Context) error {
	c.TranscodingService = serviceimpl.NewTranscodingService(
		c.VideoRepository,
		c.Storage,
		c.Transcoder,
		c.JobQueue,
		c.Lock,
		c.Notifier,
		c.Config.Transcode,
	)

	c.VideoService = serviceimpl.NewVideoService(
		c.VideoRepository,
		c.UploadSessionRepository,
		c.Storage,
		c.TranscodingService,
		c.Config.Upload,
	)

	c.UploadService = serviceimpl.NewUploadService(
		c.Storage,
		c.UploadSessionRepository,
		c.VideoService,
		c.Config.Upload,
	)

	c.AccessService = serviceimpl.NewAccessService(
		c.VideoRepository,
		c.LessonRepository,
		c.EnrollmentRepository,
	)

	c.StreamTokenService = serviceimpl.NewStreamTokenService(&c.Config.Stream)
	return nil
}

// initScheduler stuck detector และ upload sweeper รันฝั่ง API เท่านั้น
// (ทั้งสองงาน idempotent ถ้ามีหลาย replica)
func (c *Container) initScheduler(ctx context.Context) error {
	if c.Role != RoleAPI {
		return nil
	}

	c.Scheduler = scheduler.NewJobScheduler()

	c.StuckDetector = serviceimpl.NewStuckDetectorService(
		serviceimpl.StuckDetectorConfig{
			CheckCron:         c.Config.Transcode.StuckCheckCron,
			ProcessingTimeout: c.Config.Transcode.StuckTimeout,
		},
		c.VideoRepository,
		c.Notifier,
		c.Scheduler,
	)
	if err := c.StuckDetector.RegisterDetectorJob(); err != nil {
		return err
	}

	sweeperCfg := serviceimpl.UploadSweeperConfig{
		SweepCron:          c.Config.Upload.SweepCron,
		AbandonGrace:       c.Config.Upload.AbandonGrace,
		ConfirmedRetention: c.Config.Upload.ConfirmedRetention,
	}
	// work dir ของ transcoder อยู่เครื่องเดียวกันเฉพาะเมื่อรัน worker ในตัว
	if c.RunsWorker() {
		sweeperCfg.TempDir = c.Config.Transcode.TempDir
	}
	c.UploadSweeper = serviceimpl.NewUploadSweeperService(
		sweeperCfg,
		c.UploadSessionRepository,
		c.VideoRepository,
		c.Storage,
		c.Scheduler,
	)
	if err := c.UploadSweeper.RegisterSweepJob(); err != nil {
		return err
	}

	c.Scheduler.Start()
	return nil
}

// JobHandler handler ที่ worker ใช้กับ JobConsumer
func (c *Container) JobHandler() ports.JobHandler {
	return func(ctx context.Context, job *ports.TranscodeJobData) error {
		ctx = logger.ContextWithJob(ctx, job.VideoID, job.Attempt)
		return c.TranscodingService.ProcessVideoToHLS(ctx, job)
	}
}

// HealthChecks dependency ที่ /health ตรวจ
func (c *Container) HealthChecks() map[string]handlers.HealthCheck {
	checks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := c.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	if c.RedisClient != nil {
		checks["redis"] = c.RedisClient.Ping
	}
	if c.NATSClient != nil {
		checks["nats"] = func(ctx context.Context) error { return c.NATSClient.Ping() }
	}
	if c.RabbitMQClient != nil {
		checks["rabbitmq"] = func(ctx context.Context) error {
			if !c.RabbitMQClient.IsConnected() {
				return errors.New("connection closed")
			}
			return nil
		}
	}
	return checks
}

// HandlerServices dependencies สำหรับ HTTP handlers
func (c *Container) HandlerServices() *handlers.Services {
	return &handlers.Services{
		UploadService:      c.UploadService,
		VideoService:       c.VideoService,
		TranscodingService: c.TranscodingService,
		AccessService:      c.AccessService,
		StreamTokenService: c.StreamTokenService,
		StoragePort:        c.Storage,
		JobQueue:           c.JobQueue,
		LocalStorage:       c.LocalStorage,
		HealthChecks:       c.HealthChecks(),
		BaseURL:            c.Config.App.BaseURL,
		TokenScope:         c.Config.Stream.TokenScope,
		MaxUploadSize:      c.Config.Upload.MaxFileSize,
	}
}

// Cleanup ปิดตามลำดับย้อนกลับของ Initialize
func (c *Container) Cleanup() error {
	logger.Info("Starting cleanup...")

	if c.Scheduler != nil {
		c.Scheduler.Stop()
	}

	if c.JobConsumer != nil {
		if err := c.JobConsumer.Stop(); err != nil {
			logger.Warn("Failed to stop job consumer", "error", err)
		}
	}

	if c.NATSClient != nil {
		if err := c.NATSClient.Close(); err != nil {
			logger.Warn("Failed to close NATS connection", "error", err)
		}
	}

	if c.RabbitMQClient != nil {
		if err := c.RabbitMQClient.Close(); err != nil {
			logger.Warn("Failed to close RabbitMQ connection", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			logger.Warn("Failed to close Redis connection", "error", err)
		}
	}

	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.Warn("Failed to close database connection", "error", err)
			}
		}
	}

	logger.Info("Cleanup completed")
	return logger.Close()
}

// ShutdownTimeout เวลาสูงสุดที่รอ job ที่กำลังทำก่อนปิด process
const ShutdownTimeout = 30 * time.Second
