package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/totegamma/concurrent/x/auth"
	"gorm.io/gorm"

	"github.com/totegamma/mediastore/internal/blob"
	conf "github.com/totegamma/mediastore/internal/config"
	"github.com/totegamma/mediastore/internal/database"
	"github.com/totegamma/mediastore/internal/file"
	"github.com/totegamma/mediastore/internal/folder"
	"github.com/totegamma/mediastore/internal/ledger"
	"github.com/totegamma/mediastore/internal/logger"
	"github.com/totegamma/mediastore/internal/share"
	"github.com/totegamma/mediastore/internal/storage"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "mediastore",
		Short:         "file storage with per-user quotas",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "start the HTTP server",
		RunE:  runServe,
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "create or update the database schema",
		RunE:  runMigrate,
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (conf.Config, *gorm.DB, error) {
	c, err := conf.Load(configPath)
	if err != nil {
		return c, nil, err
	}
	if err := c.Validate(); err != nil {
		return c, nil, err
	}
	if err := logger.Configure(c.LogLevel, c.LogFormat); err != nil {
		return c, nil, err
	}

	db, err := database.Open(c.DSN)
	if err != nil {
		return c, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return c, nil, err
	}
	return c, db, nil
}

func runMigrate(_ *cobra.Command, _ []string) error {
	_, _, err := setup()
	if err != nil {
		return err
	}
	logger.Infof("schema is up to date")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	c, db, err := setup()
	if err != nil {
		return err
	}

	logger.WithField("backend", c.BlobBackend).WithField("quota", c.Quota).Info("starting")

	blobs, err := newBlobStore(cmd.Context(), c)
	if err != nil {
		return err
	}

	accounts := ledger.New(db, c.Quota)
	folders := folder.New(db, c.PinCost)
	files := file.New(db, accounts, folders, blobs)
	shares := share.New(files, c.PublicBaseURL)
	svc := storage.New(accounts, folders, files, shares, blobs, storage.NewMetrics(prometheus.DefaultRegisterer))

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(auth.ReceiveGatewayAuthPropagation)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	NewHandler(svc).Register(e, newRateLimiter(c.ShareRate, time.Minute).middleware, middleware.BodyLimit(c.UploadLimit))

	return e.Start(c.Listen)
}

func newBlobStore(ctx context.Context, c conf.Config) (blob.Store, error) {
	if c.BlobBackend == "fs" {
		store, err := blob.NewFsStore(c.BlobRoot)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if c.EndpointURL == "" {
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		}
		return aws.Endpoint{URL: c.EndpointURL}, nil
	})

	opts := []func(*config.LoadOptions) error{
		config.WithEndpointResolverWithOptions(resolver),
		config.WithRegion(c.Region),
	}
	if c.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.AccessKeySecret, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(options *s3.Options) {
		options.UsePathStyle = c.ForcePathStyle
	})
	return blob.NewS3Store(client, c.BucketName), nil
}
