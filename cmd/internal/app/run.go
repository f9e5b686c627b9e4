package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"bsso/cmd/security/password"
)

// Run is the CLI entrypoint used by cmd/bsso.
// It returns an error instead of calling os.Exit to keep defers effective and lint clean.
//
//	bsso                 serve
//	bsso hash-password   read a password from stdin, print its argon2id hash
func Run() error {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "hash-password" {
		return hashPassword(os.Stdin, os.Stdout)
	}
	if len(args) > 0 {
		return fmt.Errorf("unknown command %q", args[0])
	}

	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogColor)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// hashPassword prints the hash for the accounts file.
func hashPassword(in io.Reader, out io.Writer) error {
	pw, err := password.FromEnv()
	if err != nil {
		return err
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	plain := strings.TrimRight(line, "\r\n")
	if err := pw.Validate(plain); err != nil {
		return err
	}

	hash, err := pw.Hash(plain)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, hash)
	return err
}
