package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"rfm-score/pkg/config"
	apperrors "rfm-score/pkg/errors"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Open builds the DSN for cfg, opens the pool and pings it within
// cfg.ConnectTimeout. It returns the DSN with the password masked.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, string, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, "", apperrors.NewConnectionError("dsn", err)
	}
	masked := redact(cfg.Driver, dsn)

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, masked, apperrors.NewConnectionError(masked, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, masked, apperrors.NewConnectionError(masked, err)
	}
	return db, masked, nil
}

// DSN returns the driver-specific connection string. An explicit cfg.DSN
// wins over the individual fields.
func DSN(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case config.DriverMySQL, "":
		if cfg.DSN != "" {
			return toMySQLDSN(cfg.DSN)
		}
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.InterpolateParams = true
		mc.Params = map[string]string{"charset": cfg.Charset}
		return mc.FormatDSN(), nil
	case config.DriverPostgres:
		if cfg.DSN != "" {
			return cfg.DSN, nil
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			pqValue(cfg.Host), cfg.Port, pqValue(cfg.User), pqValue(cfg.Password), pqValue(cfg.Name)), nil
	default:
		return "", fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// toMySQLDSN turns a mariadb:// or mysql:// URL into a go-sql-driver DSN;
// anything else passes through unchanged.
func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pass, _ = u.User.Password()
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("incomplete dsn (user/host/db)")
		}
		params := "parseTime=true&loc=UTC&interpolateParams=true"
		if cs := u.Query().Get("charset"); cs != "" {
			params += "&charset=" + cs
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?%s", user, pass, host, db, params), nil
	}
	return dsn, nil
}

// pqValue quotes a key=value connection parameter when lib/pq would
// otherwise split or misread it.
func pqValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

var pgPassword = regexp.MustCompile(`password=('(?:[^'\\]|\\.)*'|\S+)`)

func redact(driver, dsn string) string {
	if driver == config.DriverPostgres {
		if u, err := url.Parse(dsn); err == nil && u.User != nil {
			if _, ok := u.User.Password(); ok {
				u.User = url.UserPassword(u.User.Username(), "xxxxx")
				return u.String()
			}
		}
		return pgPassword.ReplaceAllString(dsn, "password=xxxxx")
	}
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "<unparsable dsn>"
	}
	if mc.Passwd != "" {
		mc.Passwd = "xxxxx"
	}
	return mc.FormatDSN()
}
