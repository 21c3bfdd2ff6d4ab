// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fanportal Contributors

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fanportal/fanportal/internal/account"
	"github.com/fanportal/fanportal/internal/account/accounttest"
	"github.com/fanportal/fanportal/internal/account/postgres"
	"github.com/fanportal/fanportal/internal/store"
)

func TestAccountPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Account Postgres Integration Suite")
}

var (
	container *pgcontainer.PostgresContainer
	pool      *pgxpool.Pool

	accounts    *postgres.AccountRepository
	credentials *postgres.CredentialRepository
	identities  *postgres.LinkedIdentityRepository
	sessions    *postgres.SessionRepository
)

var _ = BeforeSuite(func() {
	ctx := context.Background()

	var err error
	container, err = pgcontainer.Run(ctx,
		"postgres:18-alpine",
		pgcontainer.WithDatabase("fanportal_test"),
		pgcontainer.WithUsername("fanportal"),
		pgcontainer.WithPassword("fanportal"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	_ = migrator.Close()

	pool, err = pgxpool.New(ctx, connStr)
	Expect(err).NotTo(HaveOccurred())

	accounts = postgres.NewAccountRepository(pool)
	credentials = postgres.NewCredentialRepository(pool)
	identities = postgres.NewLinkedIdentityRepository(pool)
	sessions = postgres.NewSessionRepository(pool)
})

var _ = AfterSuite(func() {
	if pool != nil {
		pool.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
})

func cleanupAccounts(ctx context.Context) {
	// Cascades clear credentials, roles, identities, and sessions.
	_, _ = pool.Exec(ctx, "DELETE FROM accounts")
}

func makeAccount(name string) *account.Account {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &account.Account{
		ID:        ulid.Make(),
		Name:      name,
		Enabled:   true,
		Roles:     []string{account.RoleDefault},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

const testHash = "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"

var _ = Describe("AccountRepository", func() {
	AfterEach(func() {
		cleanupAccounts(context.Background())
	})

	It("creates and retrieves an account with roles", func() {
		ctx := context.Background()
		acct := makeAccount("alice")

		Expect(accounts.Create(ctx, acct, testHash)).To(Succeed())

		got, err := accounts.GetByID(ctx, acct.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal("alice"))
		Expect(got.Enabled).To(BeTrue())
		Expect(got.Roles).To(Equal([]string{account.RoleDefault}))

		hash, err := credentials.HashByAccountID(ctx, acct.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(hash).To(Equal(testHash))
	})

	It("rejects a duplicate name with a conflict", func() {
		ctx := context.Background()
		Expect(accounts.Create(ctx, makeAccount("alice"), testHash)).To(Succeed())

		err := accounts.Create(ctx, makeAccount("alice"), testHash)
		Expect(err).To(MatchError(account.ErrConflict))
	})

	It("admits exactly one of two concurrent creates with the same name", func() {
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()
				errs[i] = accounts.Create(ctx, makeAccount("race"), testHash)
			}(i)
		}
		wg.Wait()

		var conflicts, successes int
		for _, err := range errs {
			switch {
			case err == nil:
				successes++
			default:
				Expect(err).To(MatchError(account.ErrConflict))
				conflicts++
			}
		}
		Expect(successes).To(Equal(1))
		Expect(conflicts).To(Equal(1))
	})

	It("matches name lookups exactly, case sensitive", func() {
		ctx := context.Background()
		Expect(accounts.Create(ctx, makeAccount("Alice"), testHash)).To(Succeed())

		_, err := accounts.GetByName(ctx, "alice")
		Expect(err).To(MatchError(account.ErrNotFound))

		got, err := accounts.GetByName(ctx, "Alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal("Alice"))
	})

	It("resolves a name-or-id token against either column", func() {
		ctx := context.Background()
		acct := makeAccount("alice")
		Expect(accounts.Create(ctx, acct, testHash)).To(Succeed())

		byName, err := accounts.GetByNameOrID(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(byName.ID).To(Equal(acct.ID))

		byID, err := accounts.GetByNameOrID(ctx, acct.ID.String())
		Expect(err).NotTo(HaveOccurred())
		Expect(byID.Name).To(Equal("alice"))
	})

	It("applies partial updates leaving other fields alone", func() {
		ctx := context.Background()
		acct := makeAccount("alice")
		Expect(accounts.Create(ctx, acct, testHash)).To(Succeed())

		avatar := "https://cdn.example.com/alice.png"
		updatedAt := time.Now().UTC().Truncate(time.Microsecond)
		err := accounts.Update(ctx, acct.ID, account.Update{
			AvatarURL: &avatar,
			UpdatedAt: updatedAt,
		})
		Expect(err).NotTo(HaveOccurred())

		got, err := accounts.GetByID(ctx, acct.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Name).To(Equal("alice"))
		Expect(got.AvatarURL).NotTo(BeNil())
		Expect(*got.AvatarURL).To(Equal(avatar))
		Expect(got.Enabled).To(BeTrue())
	})

	It("reports not found for updates to missing accounts", func() {
		enabled := false
		err := accounts.Update(context.Background(), ulid.Make(), account.Update{
			Enabled:   &enabled,
			UpdatedAt: time.Now(),
		})
		Expect(err).To(MatchError(account.ErrNotFound))
	})

	It("cascades deletion to credentials, identities, and sessions", func() {
		ctx := context.Background()
		acct := makeAccount("alice")
		Expect(accounts.Create(ctx, acct, testHash)).To(Succeed())

		Expect(identities.Insert(ctx, account.LinkedIdentity{
			AccountID:   acct.ID,
			Provider:    "discord",
			ExternalID:  "d-42",
			DisplayName: "AliceD",
			CreatedAt:   time.Now().UTC(),
		})).To(Succeed())

		session, err := account.NewSession(acct.ID, account.HashSessionToken("tok"), time.Now().Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions.Create(ctx, session)).To(Succeed())

		Expect(accounts.DeleteByID(ctx, acct.ID)).To(Succeed())

		_, err = credentials.HashByAccountID(ctx, acct.ID)
		Expect(err).To(MatchError(account.ErrNotFound))

		idents, err := identities.ListByAccount(ctx, acct.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(idents).To(BeEmpty())

		_, err = sessions.GetByTokenHash(ctx, session.TokenHash)
		Expect(err).To(MatchError(account.ErrNotFound))
	})

	It("deletes by name and reports missing deletes", func() {
		ctx := context.Background()
		Expect(accounts.Create(ctx, makeAccount("alice"), testHash)).To(Succeed())

		Expect(accounts.DeleteByName(ctx, "alice")).To(Succeed())
		Expect(accounts.DeleteByName(ctx, "alice")).To(MatchError(account.ErrNotFound))
		Expect(accounts.DeleteByID(ctx, ulid.Make())).To(MatchError(account.ErrNotFound))
	})
})

var _ = Describe("LinkedIdentityRepository", func() {
	var alice, bob *account.Account

	BeforeEach(func() {
		ctx := context.Background()
		alice = makeAccount("alice")
		bob = makeAccount("bob")
		Expect(accounts.Create(ctx, alice, testHash)).To(Succeed())
		Expect(accounts.Create(ctx, bob, testHash)).To(Succeed())
	})

	AfterEach(func() {
		cleanupAccounts(context.Background())
	})

	ident := func(acctID ulid.ULID, provider, externalID string) account.LinkedIdentity {
		return account.LinkedIdentity{
			AccountID:   acctID,
			Provider:    provider,
			ExternalID:  externalID,
			DisplayName: "display",
			CreatedAt:   time.Now().UTC(),
		}
	}

	It("reports already linked for a second link on the same provider", func() {
		ctx := context.Background()
		Expect(identities.Insert(ctx, ident(alice.ID, "discord", "d-1"))).To(Succeed())

		err := identities.Insert(ctx, ident(alice.ID, "discord", "d-2"))
		Expect(err).To(MatchError(account.ErrAlreadyLinked))
	})

	It("reports conflict when another account holds the external identity", func() {
		ctx := context.Background()
		Expect(identities.Insert(ctx, ident(alice.ID, "discord", "d-1"))).To(Succeed())

		err := identities.Insert(ctx, ident(bob.ID, "discord", "d-1"))
		Expect(err).To(MatchError(account.ErrConflict))
		Expect(err).NotTo(MatchError(account.ErrAlreadyLinked))
	})

	It("admits exactly one of two concurrent claims on the same identity", func() {
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make([]error, 2)
		claimants := []ulid.ULID{alice.ID, bob.ID}
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()
				errs[i] = identities.Insert(ctx, ident(claimants[i], "discord", "d-race"))
			}(i)
		}
		wg.Wait()

		var successes int
		for _, err := range errs {
			if err == nil {
				successes++
			} else {
				Expect(err).To(MatchError(account.ErrConflict))
			}
		}
		Expect(successes).To(Equal(1))
	})

	It("unlinks and allows a fresh link afterwards", func() {
		ctx := context.Background()
		Expect(identities.Insert(ctx, ident(alice.ID, "discord", "d-1"))).To(Succeed())
		Expect(identities.Delete(ctx, alice.ID, "discord")).To(Succeed())
		Expect(identities.Delete(ctx, alice.ID, "discord")).To(MatchError(account.ErrNotFound))
		Expect(identities.Insert(ctx, ident(alice.ID, "discord", "d-2"))).To(Succeed())
	})
})

var _ = Describe("Service", func() {
	var svc *account.Service
	var provider *accounttest.StaticProvider

	BeforeEach(func() {
		provider = &accounttest.StaticProvider{
			Token:   "tok",
			Profile: account.Profile{ExternalID: "d-42", DisplayName: "AliceD"},
		}

		hasher := account.NewArgon2idHasher()
		credStore, err := account.NewCredentialStore(accounts, credentials, hasher)
		Expect(err).NotTo(HaveOccurred())
		registry, err := account.NewRegistry(identities)
		Expect(err).NotTo(HaveOccurred())
		svc, err = account.NewService(accounts, credStore, registry, sessions, hasher, provider)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanupAccounts(context.Background())
	})

	It("runs registration, login, linking, and sessions end to end", func() {
		ctx := context.Background()

		alice, err := svc.CreateAccount(ctx, "alice", "Secret123!")
		Expect(err).NotTo(HaveOccurred())

		got, err := svc.Login(ctx, "alice", "Secret123!")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).NotTo(BeNil())
		Expect(got.ID).To(Equal(alice.ID))

		got, err = svc.Login(ctx, "alice", "wrong")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())

		result, err := svc.LinkExternal(ctx, alice.ID, "code-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(account.LinkOutcomeLinked))

		result, err = svc.LinkExternal(ctx, alice.ID, "code-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Outcome).To(Equal(account.LinkOutcomeAlreadyLinked))

		session, token, err := svc.IssueSession(ctx, alice.ID)
		Expect(err).NotTo(HaveOccurred())

		validated, err := svc.ValidateSession(ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(validated.AccountID).To(Equal(alice.ID))

		Expect(svc.RevokeSession(ctx, session.ID)).To(Succeed())
		_, err = svc.ValidateSession(ctx, token)
		Expect(err).To(HaveOccurred())
	})

	It("rotates passwords through the credential store", func() {
		ctx := context.Background()

		alice, err := svc.CreateAccount(ctx, "alice", "Secret123!")
		Expect(err).NotTo(HaveOccurred())

		Expect(svc.ChangePassword(ctx, alice.ID, "NewSecret456!")).To(Succeed())

		got, err := svc.Login(ctx, "alice", "Secret123!")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(BeNil())

		got, err = svc.Login(ctx, "alice", "NewSecret456!")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).NotTo(BeNil())
	})
})
