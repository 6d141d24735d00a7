// Package testenv starts the containerized backing services used by
// integration tests and the local development stack: a MariaDB instance
// seeded with the StudyDeck schema, and optionally an Authorizer
// instance for session validation.
package testenv

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/studydeck/studydeck/data"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultDBImage    = "mariadb:11"
	defaultAuthzImage = "lakhansamani/authorizer:1.4.4"

	// Fixed credentials for disposable stacks; never used outside
	// containers created by this package.
	RootPassword = "rootpass"
	AppDatabase  = "studydeck"
	AppUser      = "studydeck_user"
	AppPassword  = "studydeck_pass"
)

// Stack holds the running containers for one test or dev environment
type Stack struct {
	Network             *testcontainers.DockerNetwork
	DBContainer         testcontainers.Container
	AuthorizerContainer testcontainers.Container

	DBHost string
	DBPort string
}

// Terminate tears down every container in the stack
func (s *Stack) Terminate(t *testing.T) {
	ctx := context.Background()
	if s.AuthorizerContainer != nil {
		if err := s.AuthorizerContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Authorizer: %v", err)
		}
	}
	if s.DBContainer != nil {
		if err := s.DBContainer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate MariaDB: %v", err)
		}
	}
	if s.Network != nil {
		if err := s.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// DockerAvailable reports whether a docker daemon is reachable, so
// container-backed tests can skip instead of fail on hosts without one.
func DockerAvailable() bool {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return false
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err = cli.Ping(ctx)
	return err == nil
}

// StartDatabase starts a MariaDB container, creates the application
// database and service account, and applies the embedded schema.
func StartDatabase(t *testing.T) (*Stack, error) {
	ctx := context.Background()
	stack := &Stack{}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	stack.Network = nw

	dbImage := getEnv("DB_IMAGE", defaultDBImage)
	tcpDbPort, err := nat.NewPort("tcp", "3306")
	if err != nil {
		stack.Terminate(t)
		return nil, fmt.Errorf("failed to create DB port: %w", err)
	}

	dbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        dbImage,
			ExposedPorts: []string{string(tcpDbPort)},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": RootPassword,
				"MYSQL_DATABASE":      AppDatabase,
				"MYSQL_USER":          AppUser,
				"MYSQL_PASSWORD":      AppPassword,
			},
			WaitingFor: wait.ForListeningPort(tcpDbPort).WithStartupTimeout(60 * time.Second),
			Networks:   []string{nw.Name},
			NetworkAliases: map[string][]string{
				nw.Name: {"db"},
			},
			HostConfigModifier: func(hostConfig *container.HostConfig) {
				hostConfig.AutoRemove = true
			},
		},
		Started: true,
	})
	if err != nil {
		stack.Terminate(t)
		return nil, fmt.Errorf("failed to start MariaDB: %w", err)
	}
	stack.DBContainer = dbContainer

	host, err := dbContainer.Host(ctx)
	if err != nil {
		stack.Terminate(t)
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := dbContainer.MappedPort(ctx, tcpDbPort)
	if err != nil {
		stack.Terminate(t)
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	stack.DBHost = host
	stack.DBPort = port.Port()

	if err := initDatabase(host, port); err != nil {
		stack.Terminate(t)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logMessage(t, "MariaDB ready at %s:%s", stack.DBHost, stack.DBPort)
	return stack, nil
}

// StartAuthorizer adds an Authorizer container to a running stack,
// backed by the same MariaDB instance.
func (s *Stack) StartAuthorizer(t *testing.T) (string, error) {
	ctx := context.Background()

	authzImage := getEnv("AUTHZ_IMAGE", defaultAuthzImage)
	tcpAuthzPort, err := nat.NewPort("tcp", "8080")
	if err != nil {
		return "", fmt.Errorf("failed to create Authorizer port: %w", err)
	}

	authzDbConnection := fmt.Sprintf("root:%s@tcp(db:3306)/authorizer", RootPassword)
	authorizerContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        authzImage,
			ExposedPorts: []string{string(tcpAuthzPort)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     getEnv("AUTHZ_CLIENT_ID", "studydeck-test"),
				"PORT":          "8080",
				"DATABASE_TYPE": "mysql",
				"DATABASE_NAME": "authorizer",
				"DATABASE_URL":  authzDbConnection,
				"ADMIN_SECRET":  getEnv("AUTHZ_ADMIN_SECRET", "admin-secret"),
				"ROLES":         "admin,user",
				"DEFAULT_ROLES": "user",
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(30 * time.Second),
			Networks:   []string{s.Network.Name},
			NetworkAliases: map[string][]string{
				s.Network.Name: {"authorizer"},
			},
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start Authorizer: %w", err)
	}
	s.AuthorizerContainer = authorizerContainer

	host, _ := authorizerContainer.Host(ctx)
	port, _ := authorizerContainer.MappedPort(ctx, tcpAuthzPort)
	url := fmt.Sprintf("http://%s:%s", host, port.Port())

	logMessage(t, "Authorizer ready at %s", url)
	return url, nil
}

// initDatabase creates the authorizer database and applies the embedded
// StudyDeck DDL as root.
func initDatabase(host string, port nat.Port) error {
	db, err := sql.Open("mysql", fmt.Sprintf("root:%s@tcp(%s:%s)/", RootPassword, host, port.Port()))
	if err != nil {
		return fmt.Errorf("failed to connect to MariaDB for setup: %w", err)
	}
	defer db.Close()

	for i := 0; i < 30; i++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(1 * time.Second)
	}
	if err != nil {
		return fmt.Errorf("MariaDB not ready after 30 seconds: %w", err)
	}

	if _, err := db.Exec("CREATE DATABASE IF NOT EXISTS authorizer"); err != nil {
		return fmt.Errorf("failed to create authorizer database: %w", err)
	}

	if err := executeSQL(db, data.InitdbMariaDBTables); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := executeSQL(db, data.InitdbMariaDBPrivileges); err != nil {
		return fmt.Errorf("failed to apply privileges: %w", err)
	}

	return nil
}

// executeSQL runs a multi-statement SQL script one statement at a time
func executeSQL(db *sql.DB, script string) error {
	lines := strings.Split(script, "\n")

	var kept []string
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, l)
	}

	queries := strings.Split(strings.Join(kept, "\n"), ";")
	for _, q := range queries {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("%s : when executing > %s", err.Error(), q)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func logMessage(t *testing.T, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
