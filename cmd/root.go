package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "defifolio",
		Short:         "DeFifolio: connect a wallet and keep portfolio records from the terminal",
		Long:          "defifolio shows the DeFifolio welcome screen, pairs an external wallet through a WalletConnect-style endpoint, and keeps an ordered list of timestamped records.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newWelcomeCmd(app),
		newConnectCmd(app),
		newRecordCmd(app),
		newWalletCmd(app),
	)

	return rootCmd
}
