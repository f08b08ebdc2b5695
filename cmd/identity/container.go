// Composition root of the identity service. The only place that knows about
// every module.
package main

import (
	"context"

	"github.com/Abraxas-365/perimeter/pkg/config"
	"github.com/Abraxas-365/perimeter/pkg/fsx"
	"github.com/Abraxas-365/perimeter/pkg/fsx/fsxlocal"
	"github.com/Abraxas-365/perimeter/pkg/fsx/fsxs3"
	"github.com/Abraxas-365/perimeter/pkg/iam/auth"
	"github.com/Abraxas-365/perimeter/pkg/iam/auth/authhttp"
	"github.com/Abraxas-365/perimeter/pkg/iam/otp/otpinfra"
	"github.com/Abraxas-365/perimeter/pkg/iam/otp/otpsrv"
	"github.com/Abraxas-365/perimeter/pkg/iam/session/sessioninfra"
	"github.com/Abraxas-365/perimeter/pkg/iam/session/sessionsrv"
	"github.com/Abraxas-365/perimeter/pkg/iam/user/userinfra"
	"github.com/Abraxas-365/perimeter/pkg/iam/user/usersrv"
	"github.com/Abraxas-365/perimeter/pkg/jobx/jobxredis"
	"github.com/Abraxas-365/perimeter/pkg/logx"
	"github.com/Abraxas-365/perimeter/pkg/notifx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// Container holds shared infrastructure and the composed services.
type Container struct {
	Config *config.Config

	DB      *sqlx.DB
	Redis   *redis.Client
	Storage fsx.Storage

	Sessions *sessionsrv.Service
	Users    *usersrv.Service
	Handlers *authhttp.Handlers
}

func NewContainer(cfg *config.Config) *Container {
	c := &Container{Config: cfg}
	c.initInfrastructure()
	c.initServices()
	return c
}

func (c *Container) initInfrastructure() {
	db, err := sqlx.Connect("postgres", c.Config.Database.DSN())
	if err != nil {
		logx.Fatalf("Failed to connect to database: %v", err)
	}
	db.SetMaxOpenConns(c.Config.Database.MaxOpenConns)
	db.SetMaxIdleConns(c.Config.Database.MaxIdleConns)
	db.SetConnMaxLifetime(c.Config.Database.ConnMaxLifetime)
	c.DB = db
	logx.Info("database connected")

	c.Redis = redis.NewClient(&redis.Options{
		Addr:     c.Config.Redis.Address(),
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	})
	if err := c.Redis.Ping(context.Background()).Err(); err != nil {
		logx.Fatalf("Failed to connect to Redis: %v", err)
	}
	logx.Info("redis connected")

	switch c.Config.Storage.Mode {
	case "s3":
		storage, err := fsxs3.New(context.Background(), c.Config.Storage.AWSBucket, c.Config.Storage.AWSRegion, 0)
		if err != nil {
			logx.Fatalf("Failed to initialize S3 storage: %v", err)
		}
		c.Storage = storage
		logx.Infof("s3 storage configured (bucket %s)", c.Config.Storage.AWSBucket)
	case "local":
		c.Storage = fsxlocal.New(c.Config.Storage.LocalPath, c.Config.Gateway.StorageBaseURL)
		logx.Infof("local storage configured (path %s)", c.Config.Storage.LocalPath)
	default:
		logx.Fatalf("Unknown STORAGE_MODE: %s (use 'local' or 's3')", c.Config.Storage.Mode)
	}
}

func (c *Container) initServices() {
	users := userinfra.NewPostgresUserRepository(c.DB)
	sessions := sessioninfra.NewPostgresSessionRepository(c.DB)
	otps := otpinfra.NewPostgresOTPRepository(c.DB)

	codec := auth.NewCodec(c.Config.Auth.JWTSecret, c.Config.Auth.Issuer)
	digester := auth.NewDigester(c.Config.Auth.RefreshDigestSalt)
	hasher := auth.NewBcryptHasher(c.Config.Auth.BcryptCost)

	c.Sessions = sessionsrv.NewService(sessions, users, codec, digester,
		c.Config.Auth.AccessTokenTTL, c.Config.Auth.RefreshTokenTTL)

	otpEngine := otpsrv.NewService(otps, hasher, c.Config.OTP.Length, c.Config.OTP.TTL)

	dispatcher := notifx.NewDispatcher(jobxredis.New(c.Redis),
		c.Config.Jobx.Queues[0], c.Config.Jobx.EnqueueTimeout)

	c.Users = usersrv.NewService(users, hasher, otpEngine, c.Sessions, dispatcher)
	c.Handlers = authhttp.NewHandlers(c.Users, c.Sessions, c.Storage)
}

// Cleanup releases held connections.
func (c *Container) Cleanup() {
	if c.DB != nil {
		_ = c.DB.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
