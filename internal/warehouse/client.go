package warehouse

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Client manages the connection to the warehouse.
type Client struct {
	conn   *pgx.Conn
	logger *log.Logger
}

// NewClient connects to the warehouse at connString. A nil logger uses log.Default().
func NewClient(ctx context.Context, connString string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping warehouse: %w", err)
	}

	return &Client{conn: conn, logger: logger}, nil
}

// Close closes the warehouse connection
func (c *Client) Close(ctx context.Context) error {
	return c.conn.Close(ctx)
}

// Exec runs stmts in order and stops at the first failure.
func (c *Client) Exec(ctx context.Context, stmts []string) error {
	for _, s := range stmts {
		c.logger.Printf("Executing: %s", firstLine(s))
		if _, err := c.conn.Exec(ctx, s); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(s), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
