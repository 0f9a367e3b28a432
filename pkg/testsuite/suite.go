package testsuite

import (
	"context"
	"fmt"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/socsahar/Vapes-Shop-sub002/pkg/db"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// BaseSuite owns the containers shared by integration suites. Suites embed it and
// call SetupInfrastructure from SetupSuite.
type BaseSuite struct {
	suite.Suite
	PgContainer    *postgres.PostgresContainer
	RedisContainer *redis.RedisContainer
	KafkaContainer *kafka.KafkaContainer
	DbPool         *pgxpool.Pool
	DbURL          string
	Redis          *goredis.Client
	KafkaBrokers   []string
	Ctx            context.Context
}

type Options struct {
	Redis bool
	Kafka bool
}

func (s *BaseSuite) SetupInfrastructure(migrationsRelPath string, opts Options) {
	if testing.Short() {
		s.T().Skip("integration suite skipped in -short mode")
	}

	s.Ctx = context.Background()

	var err error
	s.PgContainer, err = postgres.Run(
		s.Ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	s.Require().NoError(err)

	s.DbURL, err = s.PgContainer.ConnectionString(s.Ctx, "sslmode=disable")
	s.Require().NoError(err)

	log.Printf("Running migrations from: %s", migrationsRelPath)
	s.Require().NoError(db.RunMigrations(migrationsRelPath, s.DbURL))

	s.DbPool, err = pgxpool.New(s.Ctx, s.DbURL)
	s.Require().NoError(err)

	if opts.Redis {
		s.RedisContainer, err = redis.Run(s.Ctx, "redis:7-alpine")
		s.Require().NoError(err)

		uri, err := s.RedisContainer.ConnectionString(s.Ctx)
		s.Require().NoError(err)

		redisOpts, err := goredis.ParseURL(uri)
		s.Require().NoError(err)

		s.Redis = goredis.NewClient(redisOpts)
	}

	if opts.Kafka {
		s.KafkaContainer, err = kafka.Run(
			s.Ctx,
			"confluentinc/cp-kafka:7.5.0",
			kafka.WithClusterID("test-cluster"),
		)
		s.Require().NoError(err)

		s.KafkaBrokers, err = s.KafkaContainer.Brokers(s.Ctx)
		s.Require().NoError(err)
	}
}

func (s *BaseSuite) TearDownInfrastructure() {
	if s.DbPool != nil {
		s.DbPool.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}

	var containers []testcontainers.Container
	if s.PgContainer != nil {
		containers = append(containers, s.PgContainer)
	}
	if s.RedisContainer != nil {
		containers = append(containers, s.RedisContainer)
	}
	if s.KafkaContainer != nil {
		containers = append(containers, s.KafkaContainer)
	}

	for _, c := range containers {
		if err := c.Terminate(s.Ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}
}

func (s *BaseSuite) TruncateTable(tableNames ...string) {
	_, err := s.DbPool.Exec(s.Ctx, fmt.Sprintf("TRUNCATE %s RESTART IDENTITY CASCADE", strings.Join(tableNames, ", ")))
	s.Require().NoError(err)
}
