package main

import (
	"log"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
)

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags|log.LUTC)
	if err := newApp(logger).Run(os.Args); err != nil {
		logger.Printf("paymasterctl failed: %v", err)
		os.Exit(1)
	}
}

func newApp(logger *log.Logger) *cli.App {
	app := cli.NewApp()
	app.Name = "paymasterctl"
	app.Usage = "operate project paymasters"
	app.Action = cli.ShowAppHelp
	app.Commands = []*cli.Command{
		{
			Action:   deriveAction,
			Name:     "derive",
			Usage:    "Print the deterministic paymaster address of a project",
			Category: "Keys",
			Flags: []cli.Flag{
				projectFlag(),
				categoryFlag(),
				&cli.StringFlag{
					Name:    "seed",
					Usage:   "master seed, raw text or 0x-prefixed hex",
					EnvVars: []string{"PAYMASTER_MASTER_SEED"},
				},
			},
			Description: `Derives the address without touching the database. Private keys are never printed.`,
		},
		{
			Action:   validateAddressAction,
			Name:     "validate-address",
			Usage:    "Check an address against a chain category",
			Category: "Keys",
			Flags: []cli.Flag{
				categoryFlag(),
				&cli.StringFlag{Name: "address", Required: true},
			},
		},
		{
			Action:   withContainer(logger, addressesAction),
			Name:     "addresses",
			Usage:    "List stored paymaster addresses of a project",
			Category: "Paymasters",
			Flags:    []cli.Flag{projectFlag()},
		},
		{
			Action:   withContainer(logger, retryAction),
			Name:     "retry",
			Usage:    "Retry failed and pending deployments of a project",
			Category: "Paymasters",
			Flags:    []cli.Flag{projectFlag()},
		},
		{
			Action:   withContainer(logger, refreshAction),
			Name:     "refresh",
			Usage:    "Refresh on-chain balances of a project",
			Category: "Balances",
			Flags:    []cli.Flag{projectFlag()},
		},
		{
			Action:   withContainer(logger, setActiveAction),
			Name:     "set-active",
			Usage:    "Enable or disable a project paymaster category",
			Category: "Paymasters",
			Flags: []cli.Flag{
				projectFlag(),
				categoryFlag(),
				&cli.BoolFlag{Name: "active", Value: true},
			},
		},
	}
	return app
}

func projectFlag() cli.Flag {
	return &cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "project id", Required: true}
}

func categoryFlag() cli.Flag {
	return &cli.StringFlag{Name: "category", Aliases: []string{"c"}, Usage: "EVM or SVM", Required: true}
}
