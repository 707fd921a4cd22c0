package dao

import (
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testDB is nil when Docker is not available; tests needing it are skipped.
var testDB *gorm.DB

func TestMain(m *testing.M) {
	os.Exit(runWithPostgres(m))
}

func runWithPostgres(m *testing.M) int {
	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		log.Printf("docker unavailable, skipping database tests: %v", err)
		return m.Run()
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=raffle",
			"POSTGRES_PASSWORD=raffle",
			"POSTGRES_DB=raffle_test",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Printf("could not start postgres, skipping database tests: %v", err)
		return m.Run()
	}
	defer func() {
		if err := pool.Purge(resource); err != nil {
			log.Printf("could not purge postgres: %v", err)
		}
	}()
	_ = resource.Expire(120)

	dsn := fmt.Sprintf("postgres://raffle:raffle@%s/raffle_test?sslmode=disable", resource.GetHostPort("5432/tcp"))
	pool.MaxWait = 60 * time.Second
	err = pool.Retry(func() error {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err = sqlDB.Ping(); err != nil {
			return err
		}

		testDB = db
		return nil
	})
	if err != nil {
		log.Printf("could not connect to postgres: %v", err)
		return 1
	}

	if err = InitTables(testDB); err != nil {
		log.Printf("could not migrate: %v", err)
		return 1
	}

	return m.Run()
}

func requireDB(t *testing.T) *gorm.DB {
	t.Helper()

	if testDB == nil {
		t.Skip("postgres is not available")
	}

	return testDB
}
