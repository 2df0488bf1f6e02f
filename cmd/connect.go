package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/jkalmus/defifolio/internal/adapters/wallet/loopback"
	"github.com/jkalmus/defifolio/internal/application"
	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/spf13/cobra"
)

func newConnectCmd(app *app) *cobra.Command {
	var endpoint string
	var policy string
	var timeout time.Duration
	var noWait bool
	var copyURI bool

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Pair an external wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := app.connectionConfig()
			if cmd.Flags().Changed("endpoint") {
				cfg.Endpoint = endpoint
			}
			if cmd.Flags().Changed("policy") {
				parsed, err := domain.ParseConnectPolicy(policy)
				if err != nil {
					return err
				}
				cfg.Policy = parsed
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Timeout = timeout
			}

			return runConnect(cmd.Context(), app, cfg, connectOptions{noWait: noWait, copyURI: copyURI}, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Wallet relay endpoint (default from wallet.endpoint)")
	cmd.Flags().StringVar(&policy, "policy", "", "Connect policy (optimistic|confirmed)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait for wallet approval")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Print the pairing link and exit without waiting for approval")
	cmd.Flags().BoolVar(&copyURI, "copy", false, "Copy the pairing URI to the system clipboard")

	return cmd
}

type connectOptions struct {
	noWait  bool
	copyURI bool
}

func runConnect(ctx context.Context, app *app, cfg application.ConnectionConfig, opts connectOptions, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client, err := app.openWallet(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	controller := application.NewConnectionController(client, cfg, app.logger)
	go func() {
		_ = controller.Run(ctx)
	}()

	session, err := controller.RequestConnection(ctx)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Pairing URI: %s\n", session.PairingURI)
	if opts.copyURI {
		if err := app.copyToClipboard(session.PairingURI); err != nil {
			// Headless sessions have no clipboard; the URI is already printed.
			app.logger.Warn("copy pairing uri to clipboard", "error", err)
		} else {
			_, _ = fmt.Fprintln(stdout, "Pairing URI copied to clipboard.")
		}
	}
	if callback, ok := client.(*loopback.Client); ok {
		_, _ = fmt.Fprintf(stdout, "Approve at: %s/approve?%s\n", callback.CallbackURL(), url.Values{"topic": {session.Topic}}.Encode())
	}

	if opts.noWait || cfg.Policy != domain.ConnectPolicyConfirmed {
		_, _ = fmt.Fprintln(stdout, controller.State().State.Label())
		return nil
	}

	var settled domain.Connection
	err = runApprovalSpinner(ctx, stderr, func(ctx context.Context) error {
		var awaitErr error
		settled, awaitErr = controller.AwaitSettled(ctx)
		return awaitErr
	})
	if err != nil {
		return fmt.Errorf("wait for wallet approval: %w", err)
	}

	if !settled.IsConnected() {
		if settled.Err != nil {
			return settled.Err
		}
		return errors.New("wallet connection failed")
	}

	if settled.Session == nil {
		_, _ = fmt.Fprintln(stdout, settled.State.Label())
		return nil
	}

	session = *settled.Session
	_, _ = fmt.Fprintf(stdout, "Connected to wallet: %s\n", session)
	for _, account := range session.Accounts {
		_, _ = fmt.Fprintf(stdout, "  %s\n", account)
	}

	return nil
}
