// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fanportal/fanportal/internal/store"
)

var (
	container *postgres.PostgresContainer
	connStr   string
)

var _ = BeforeSuite(func() {
	ctx := context.Background()

	var err error
	container, err = postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("fanportal_test"),
		postgres.WithUsername("fanportal"),
		postgres.WithPassword("fanportal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err = container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())
})

var _ = AfterSuite(func() {
	if container != nil {
		_ = container.Terminate(context.Background())
	}
})

var _ = Describe("Open", func() {
	It("connects and pings", func() {
		ctx := context.Background()
		pool, err := store.Open(ctx, connStr, 4)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		Expect(pool.Ping(ctx)).To(Succeed())
	})

	It("applies the default pool bound when unset", func() {
		ctx := context.Background()
		pool, err := store.Open(ctx, connStr, 0)
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		Expect(pool.Config().MaxConns).To(Equal(int32(store.DefaultMaxConns)))
	})
})

var _ = Describe("Migrator", func() {
	var pool *pgxpool.Pool

	BeforeEach(func() {
		var err error
		pool, err = pgxpool.New(context.Background(), connStr)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		pool.Close()
	})

	It("migrates up, reports the version, and rolls back down", func() {
		ctx := context.Background()

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		defer migrator.Close()

		Expect(migrator.Up()).To(Succeed())

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeNumerically(">=", 1))
		Expect(dirty).To(BeFalse())

		// Schema tables exist after Up.
		var count int
		err = pool.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&count)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(0))

		// Up again is a no-op, not an error.
		Expect(migrator.Up()).To(Succeed())

		Expect(migrator.Down()).To(Succeed())

		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(0)))
	})
})
