//go:build integration

package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

var testPool *pgxpool.Pool

// TestMain uses TEST_DATABASE_URL when set, otherwise boots a throwaway postgres:14 container.
func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	containerID := ""
	if dsn == "" {
		containerID, dsn = startPostgres()
	}

	var err error
	for i := 0; i < 15; i++ {
		testPool, err = pgxpool.Connect(context.Background(), dsn)
		if err == nil {
			if err = testPool.Ping(context.Background()); err == nil {
				break
			}
			testPool.Close()
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		stopPostgres(containerID)
		log.Fatalf("admin web test database unavailable: %v", err)
	}

	if err := applySchema(testPool); err != nil {
		testPool.Close()
		stopPostgres(containerID)
		log.Fatal(err)
	}

	code := m.Run()
	testPool.Close()
	stopPostgres(containerID)
	os.Exit(code)
}

func startPostgres() (id, dsn string) {
	const (
		db   = "admin_web_test"
		user = "admin_web"
		pass = "password"
		port = "55433"
	)
	cmd := exec.Command("docker", "run", "-d", "--rm",
		"-p", port+":5432",
		"-e", "POSTGRES_DB="+db,
		"-e", "POSTGRES_USER="+user,
		"-e", "POSTGRES_PASSWORD="+pass,
		"postgres:14-alpine",
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		log.Fatalf("could not start postgres container: %v (is Docker running?)", err)
	}
	return strings.TrimSpace(out.String()), fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", user, pass, port, db)
}

func stopPostgres(id string) {
	if id == "" {
		return
	}
	if err := exec.Command("docker", "stop", id).Run(); err != nil {
		log.Printf("could not stop container %s: %v", id, err)
	}
}

func applySchema(pool *pgxpool.Pool) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return errors.New("go.mod not found above test directory")
		}
		dir = parent
	}
	schema, err := os.ReadFile(filepath.Join(dir, "deploy", "postgres", "init.sql"))
	if err != nil {
		return err
	}
	_, err = pool.Exec(context.Background(), string(schema))
	return err
}
