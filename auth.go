package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pokeguess/guesswho/internal/admin"
)

// adminCommand mints credentials for the reset action.
func adminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "manage admin credentials for reset",
		Subcommands: []*cli.Command{
			{
				Name:  "token",
				Usage: "print a signed admin JWT (uses admin.jwt_secret / ADMIN_JWT_SECRET)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Value: "admin", Usage: "who the token is issued to"},
					&cli.DurationFlag{Name: "ttl", Value: 30 * 24 * time.Hour, Usage: "token lifetime"},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					if cfg.Admin.JWTSecret == "" {
						return errors.New("admin.jwt_secret (ADMIN_JWT_SECRET) is not set")
					}
					token, exp, err := admin.SignToken(cfg.Admin.JWTSecret, c.String("subject"), c.Duration("ttl"))
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, token)
					fmt.Fprintf(c.App.ErrWriter, "expires %s\n", exp.UTC().Format(time.RFC3339))
					return nil
				},
			},
			{
				Name:      "hash-key",
				Usage:     "print the bcrypt hash of KEY for admin.key_hash / ADMIN_KEY_HASH",
				ArgsUsage: "KEY",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("usage: guesswho admin hash-key KEY", 2)
					}
					hash, err := admin.HashKey(c.Args().First())
					if err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, hash)
					return nil
				},
			},
		},
	}
}
