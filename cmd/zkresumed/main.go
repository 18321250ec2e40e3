package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/urfave/cli"

	"github.com/zkresume/confidential-wallet/chain"
	"github.com/zkresume/confidential-wallet/client"
	"github.com/zkresume/confidential-wallet/compute"
	"github.com/zkresume/confidential-wallet/minting"
	"github.com/zkresume/confidential-wallet/processing"
	"github.com/zkresume/confidential-wallet/rpcwallet"
	"github.com/zkresume/confidential-wallet/wallet"
)

func main() {
	app := cli.NewApp()
	app.Name = "zkresumed"
	app.Usage = "confidential work-experience credentials: process " +
		"private claims on a confidential-compute network and mint " +
		"the results as tokens"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpc",
			Usage: "JSON-RPC endpoint of the active chain",
			Value: chain.TargetChain().RPCURL,
		},
		cli.StringFlag{
			Name:  "account",
			Usage: "wallet account address (0x...)",
		},
		cli.StringFlag{
			Name: "key",
			Usage: "hex-encoded private key for signing; " +
				"read-only without it",
			EnvVar: "ZKRESUME_KEY",
		},
		cli.StringFlag{
			Name:  "gateway",
			Usage: "confidential-compute gateway base URL",
		},
		cli.StringFlag{
			Name:  "contract",
			Usage: "credential token contract address",
			Value: rpcwallet.DefaultContractAddress,
		},
		cli.StringFlag{
			Name:  "dir",
			Usage: "session storage directory",
			Value: ".",
		},
		cli.BoolFlag{
			Name: "strict-balance",
			Usage: "fail on insufficient compute stake instead " +
				"of simulating",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
	app.Commands = []cli.Command{
		connectCommand, disconnectCommand, sessionCommand,
		submitCommand, statusCommand, mintCommand, tokensCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "[zkresumed] %v\n", err)
		os.Exit(1)
	}
}

// setupLogging routes every package logger to stderr at the requested
// level.
func setupLogging(debug bool) {
	backend := btclog.NewBackend(os.Stderr)
	level := btclog.LevelInfo
	if debug {
		level = btclog.LevelDebug
	}

	for tag, install := range map[string]func(btclog.Logger){
		"WLLT": wallet.UseLogger,
		"CHAN": chain.UseLogger,
		"CMPT": compute.UseLogger,
		"PROC": processing.UseLogger,
		"MINT": minting.UseLogger,
		"RPCW": rpcwallet.UseLogger,
	} {
		logger := backend.Logger(tag)
		logger.SetLevel(level)
		install(logger)
	}
}

// newClient assembles the embedded client from the global flags.
func newClient(c *cli.Context) (*client.Client, error) {
	setupLogging(c.GlobalBool("debug"))

	accountHex := c.GlobalString("account")
	keyHex := c.GlobalString("key")
	if accountHex == "" && keyHex == "" {
		return nil, fmt.Errorf("either --account or --key is required")
	}

	cfg := rpcwallet.DefaultConfig(
		c.GlobalString("rpc"), common.HexToAddress(accountHex),
	)
	cfg.KnownChains = []wallet.ChainDefinition{
		chain.ComputeChain(), chain.TargetChain(),
	}
	if keyHex != "" {
		key, err := crypto.HexToECDSA(keyHex)
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		cfg.PrivateKey = key
		if accountHex == "" {
			cfg.Account = crypto.PubkeyToAddress(key.PublicKey)
		}
	}

	provider, err := rpcwallet.NewProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	contract, err := rpcwallet.NewContract(&rpcwallet.ContractConfig{
		Provider: provider,
		Address:  common.HexToAddress(c.GlobalString("contract")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bind contract: %w", err)
	}

	var network compute.Network
	if gateway := c.GlobalString("gateway"); gateway != "" {
		gatewayCfg := compute.DefaultConfig()
		gatewayCfg.BaseURL = gateway
		network = compute.NewClient(gatewayCfg)
	}

	return client.New(&client.Config{
		Provider:      provider,
		Network:       network,
		Contract:      contract,
		SessionDir:    c.GlobalString("dir"),
		StrictBalance: c.GlobalBool("strict-balance"),
	})
}

// printJSON renders a command result on stdout.
func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var connectCommand = cli.Command{
	Name:  "connect",
	Usage: "connect the wallet and persist the session",
	Action: func(c *cli.Context) error {
		cl, err := newClient(c)
		if err != nil {
			return err
		}
		defer cl.Close()

		session, err := cl.ConnectWallet(context.Background())
		if err != nil {
			return err
		}
		return printJSON(session)
	},
}

var disconnectCommand = cli.Command{
	Name:  "disconnect",
	Usage: "disconnect the wallet and clear the persisted session",
	Action: func(c *cli.Context) error {
		cl, err := newClient(c)
		if err != nil {
			return err
		}
		defer cl.Close()

		cl.DisconnectWallet()
		fmt.Println("disconnected")
		return nil
	},
}

var sessionCommand = cli.Command{
	Name:  "session",
	Usage: "show the current wallet session",
	Action: func(c *cli.Context) error {
		cl, err := newClient(c)
		if err != nil {
			return err
		}
		defer cl.Close()

		return printJSON(cl.GetSession())
	},
}

var submitCommand = cli.Command{
	Name:  "submit",
	Usage: "submit a work-experience claim for confidential processing",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "role",
			Usage: "job role or title",
		},
		cli.IntFlag{
			Name:  "years",
			Usage: "years of experience",
		},
		cli.StringFlag{
			Name:  "industry",
			Usage: "industry identifier",
		},
		cli.StringFlag{
			Name:  "description",
			Usage: "free-form description of the experience",
		},
		cli.BoolFlag{
			Name:  "allow-validation",
			Usage: "permit third-party validation of the claim",
		},
	},
	Action: func(c *cli.Context) error {
		cl, err := newClient(c)
		if err != nil {
			return err
		}
		defer cl.Close()

		ctx := context.Background()
		if _, err := cl.ConnectWallet(ctx); err != nil {
			return err
		}

		claim := processing.Claim{
			Role:              c.String("role"),
			YearsOfExperience: c.Int("years"),
			Industry:          c.String("industry"),
			Description:       c.String("description"),
			AllowValidation:   c.Bool("allow-validation"),
		}

		result, err := cl.SubmitClaim(ctx, claim)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

var statusCommand = cli.Command{
	Name:      "status",
	Usage:     "check the status of a submitted compute task",
	ArgsUsage: "<task-id>",
	Action: func(c *cli.Context) error {
		taskID := c.Args().First()
		if taskID == "" {
			return fmt.Errorf("task id required")
		}

		cl, err := newClient(c)
		if err != nil {
			return err
		}
		defer cl.Close()

		status := cl.TaskStatus(context.Background(), taskID)
		fmt.Printf("%s: %v\n", taskID, status)
		fmt.Println(compute.ExplorerURL(taskID))
		return nil
	},
}

var mintCommand = cli.Command{
	Name:      "mint",
	Usage:     "mint a processing result as a credential token",
	ArgsUsage: "<result-hash>",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "industry",
			Usage: "industry identifier for the metadata",
		},
		cli.IntFlag{
			Name:  "years",
			Usage: "years of experience for the metadata",
		},
		cli.BoolFlag{
			Name:  "allow-validation",
			Usage: "record that third-party validation is allowed",
		},
	},
	Action: func(c *cli.Context) error {
		resultHash := c.Args().First()
		if resultHash == "" {
			return fmt.Errorf("result hash required")
		}

		cl, err := newClient(c)
		if err != nil {
			return err
		}
		defer cl.Close()

		ctx := context.Background()
		if _, err := cl.ConnectWallet(ctx); err != nil {
			return err
		}

		cred, err := cl.MintCredential(
			ctx,
			&processing.Result{ResultHash: resultHash},
			minting.Metadata{
				Industry:        c.String("industry"),
				ExperienceYears: c.Int("years"),
				AllowValidation: c.Bool("allow-validation"),
			},
		)
		if err != nil {
			return err
		}
		return printJSON(cred)
	},
}

var tokensCommand = cli.Command{
	Name:  "tokens",
	Usage: "list credential tokens owned by the connected account",
	Action: func(c *cli.Context) error {
		cl, err := newClient(c)
		if err != nil {
			return err
		}
		defer cl.Close()

		ctx := context.Background()
		if _, err := cl.ConnectWallet(ctx); err != nil {
			return err
		}

		creds, err := cl.OwnedCredentials(ctx)
		if err != nil {
			return err
		}
		return printJSON(creds)
	},
}
