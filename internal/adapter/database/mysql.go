package database

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/semmidev/replguard/internal/domain"
	"github.com/semmidev/replguard/internal/infrastructure/executor"
)

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd executor.Command) ([]byte, error)
}

type Timeouts struct {
	Query time.Duration
	Dump  time.Duration
}

// MySQLReplica talks to a MySQL replica running in a container through
// `docker exec`. The password reaches the client through MYSQL_PWD, never
// through the command line.
type MySQLReplica struct {
	runner   Runner
	server   domain.Server
	password string
	timeouts Timeouts
}

var _ domain.Replica = (*MySQLReplica)(nil)

func NewMySQL(runner Runner, server domain.Server, password string, timeouts Timeouts) *MySQLReplica {
	return &MySQLReplica{
		runner:   runner,
		server:   server,
		password: password,
		timeouts: timeouts,
	}
}

func (m *MySQLReplica) command(tool string, timeout time.Duration, args ...string) executor.Command {
	argv := []string{"exec", "-e", "MYSQL_PWD", m.server.Container, tool, "-u", m.server.User}
	return executor.Command{
		Name:    "docker",
		Args:    append(argv, args...),
		Env:     []string{"MYSQL_PWD=" + m.password},
		Timeout: timeout,
	}
}

func (m *MySQLReplica) query(ctx context.Context, args ...string) (string, error) {
	out, err := m.runner.Run(ctx, m.command("mysql", m.timeouts.Query, args...))
	if err != nil {
		return "", fmt.Errorf("mysql query failed: %w", err)
	}
	return string(out), nil
}

func (m *MySQLReplica) RunningStatus(ctx context.Context) (string, error) {
	return m.query(ctx, "-sN", "-e", "SHOW STATUS LIKE 'Slave_Running'")
}

func (m *MySQLReplica) SlaveStatus(ctx context.Context) (string, error) {
	return m.query(ctx, "-e", `SHOW SLAVE STATUS\G`)
}

func (m *MySQLReplica) StopSlave(ctx context.Context) error {
	_, err := m.query(ctx, "-e", "STOP SLAVE")
	return err
}

func (m *MySQLReplica) StartSlave(ctx context.Context) error {
	_, err := m.query(ctx, "-e", "START SLAVE")
	return err
}

func (m *MySQLReplica) ListDatabases(ctx context.Context) ([]string, error) {
	out, err := m.query(ctx, "-sN", "-e", "SHOW DATABASES")
	if err != nil {
		return nil, err
	}

	var databases []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			databases = append(databases, name)
		}
	}
	return databases, nil
}

// Dump writes `mysqldump --opt --databases <database>` to outputPath. A
// partial file is removed on failure.
func (m *MySQLReplica) Dump(ctx context.Context, database, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create dump file: %w", err)
	}

	cmd := m.command("mysqldump", m.timeouts.Dump, "--opt", "--databases", database)
	cmd.Stdout = file

	_, runErr := m.runner.Run(ctx, cmd)
	closeErr := file.Close()
	if runErr != nil {
		os.Remove(outputPath)
		return fmt.Errorf("mysqldump failed: %w", runErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to write dump file: %w", closeErr)
	}

	return nil
}
