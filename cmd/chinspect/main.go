// Command chinspect connects to a server, runs one query, and prints the
// row count and elapsed progress — a minimal demonstration binary built
// as a thin flag.FlagSet wrapper around session.Connect and Session.Query.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/maxjustus/chgo/block"
	"github.com/maxjustus/chgo/session"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("chinspect", flag.ContinueOnError)
	host := fs.String("host", "127.0.0.1", "server host")
	port := fs.Int("port", 9000, "server port")
	database := fs.String("database", "default", "database")
	user := fs.String("user", "default", "user")
	password := fs.String("password", "", "password")
	query := fs.String("query", "SELECT 1", "query to run")
	timeout := fs.Duration("timeout", 30*time.Second, "query timeout")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	cfg := session.Config{
		Host:           *host,
		Port:           *port,
		Database:       *database,
		User:           *user,
		Password:       *password,
		QueryTimeoutMs: int(timeout.Milliseconds()),
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+5*time.Second)
	defer cancel()

	sess, err := session.Connect(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chinspect: connect: %v\n", err)
		return 1
	}
	defer sess.Close()

	var rows int
	result, err := sess.Query(ctx, *query, func(b *block.Block) error {
		rows += b.RowCount
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "chinspect: query failed: %v\n", err)
		return 1
	}

	fmt.Printf("rows: %d\n", rows)
	fmt.Printf("read_rows: %d read_bytes: %d elapsed: %s\n",
		result.Progress.ReadRows, result.Progress.ReadBytes, result.Progress.Elapsed())
	return 0
}
