package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	welcomeadapter "github.com/jkalmus/defifolio/internal/adapters/render/welcome"
	"github.com/jkalmus/defifolio/internal/application"
	"github.com/jkalmus/defifolio/internal/domain"
	"github.com/spf13/cobra"
)

func newWelcomeCmd(app *app) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "welcome",
		Short: "Show the DeFifolio welcome screen",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if once {
				return renderWelcomeOnce(cmd, app)
			}
			return runWelcomeScreen(cmd, app)
		},
	}

	cmd.Flags().BoolVar(&once, "once", false, "Print a single snapshot instead of the interactive screen")

	return cmd
}

func renderWelcomeOnce(cmd *cobra.Command, app *app) error {
	records, err := app.records.ListRecords(cmd.Context())
	if err != nil {
		return err
	}

	output, err := app.welcomeRenderer(welcomeadapter.View{
		Connection: domain.NewConnection(app.config.Wallet.Policy),
		Records:    records,
		Selected:   -1,
	}, welcomeadapter.RenderOptions{})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), output)
	return err
}

func runWelcomeScreen(cmd *cobra.Command, app *app) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	client, err := app.openWallet(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	controller := application.NewConnectionController(client, app.connectionConfig(), app.logger)
	go func() {
		_ = controller.Run(ctx)
	}()

	screen := welcomeadapter.NewScreen(welcomeadapter.Deps{
		Ctx:       ctx,
		Connector: controller,
		Records:   app.records,
		Now:       app.now,
	})
	defer screen.Close()

	p := tea.NewProgram(
		screen,
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen(),
	)

	_, err = p.Run()
	return err
}
