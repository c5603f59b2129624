package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Session is one dedicated store connection. *sql.Conn satisfies it; session
// variables (@result, @userId ...) survive between statements on it.
type Session interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	PingContext(ctx context.Context) error
	Close() error
}

// Connector builds a brand-new Session.
type Connector func(ctx context.Context) (Session, error)

type Addr struct {
	Host   string
	Port   string
	User   string
	Passwd string
	Schema string
}

func (a *Addr) String() string {
	return net.JoinHostPort(a.Host, a.Port)
}

// OpenDB opens the handle pooled sessions are carved from. The handle is
// capped at maxOpen so sessions plus reconnects can never exceed it.
func OpenDB(addr *Addr, maxOpen int) (*sql.DB, error) {
	cfg := mysql.NewConfig()
	cfg.User = addr.User
	cfg.Passwd = addr.Passwd
	cfg.Net = "tcp"
	cfg.Addr = addr.String()
	cfg.DBName = addr.Schema
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	cfg.Timeout = 5 * time.Second

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql config for %s: %w", addr, err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	return db, nil
}

// DBConnector pins one connection of db per session.
func DBConnector(db *sql.DB) Connector {
	return func(ctx context.Context) (Session, error) {
		conn, err := db.Conn(ctx)
		if err != nil {
			return nil, err
		}
		if err := conn.PingContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	}
}
