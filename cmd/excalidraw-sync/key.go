package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"excalidraw-httpsync/encryption"
	"excalidraw-httpsync/handlers/auth"

	"github.com/spf13/pflag"
)

func runKey(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: expected key get or key set", errUsage)
	}

	var conn connection
	fs := pflag.NewFlagSet("key "+args[0], pflag.ContinueOnError)
	conn.addFlags(fs)
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}
	c, err := conn.client()
	if err != nil {
		return err
	}

	switch args[0] {
	case "get":
		key, found, err := c.FetchRoomKey(ctx, conn.room)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("room %s has no stored key", conn.room)
		}
		fmt.Fprintln(stdout, key)
		return nil

	case "set":
		key := conn.key
		if key == "" {
			if key, err = encryption.GenerateKey(); err != nil {
				return err
			}
		}
		ok, err := c.StoreRoomKey(ctx, conn.room, key)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("server did not accept the room key")
		}
		fmt.Fprintln(stdout, key)
		return nil

	default:
		return fmt.Errorf("%w: unknown key command %q", errUsage, args[0])
	}
}

// runToken mints a write token for a server sharing the same JWT_SECRET.
func runToken(args []string, stdout io.Writer) error {
	var secret, subject string
	var ttl time.Duration
	fs := pflag.NewFlagSet("token", pflag.ContinueOnError)
	fs.StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC secret of the server")
	fs.StringVar(&subject, "subject", "excalidraw-sync", "token subject")
	fs.DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	token, err := auth.NewSigner(secret).Issue(subject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, token)
	return nil
}
