package main

import (
	"io"

	"github.com/spf13/cobra"

	"HederaDEX-Agent/internal/app"
	"HederaDEX-Agent/internal/config"
	"HederaDEX-Agent/pkg/logger"
)

type globalFlags struct {
	configPath string
	network    string
	asJSON     bool
}

// session 持有一次命令执行期间打开的服务。
type session struct {
	flags *globalFlags
	app   *app.App
	out   io.Writer
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}
	sess := &session{flags: flags}

	root := &cobra.Command{
		Use:           "hederadexctl",
		Short:         "Quote, swap and manage liquidity on the Hedera DEX",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			sess.out = cmd.OutOrStdout()
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if sess.app != nil {
				return sess.app.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", config.ResolvePath(), "path to the YAML configuration")
	root.PersistentFlags().StringVarP(&flags.network, "network", "n", "", "network to use (defaults to the configured network)")
	root.PersistentFlags().BoolVar(&flags.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		newQuoteCommand(sess),
		newSwapCommand(sess),
		newLiquidityCommand(sess),
		newPoolsCommand(sess),
		newPositionsCommand(sess),
	)
	return root
}

// open 加载配置并构建服务，同一次执行只构建一次。
func (s *session) open(cmd *cobra.Command) (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	cfg, err := config.Load(s.flags.configPath)
	if err != nil {
		return nil, err
	}
	if s.flags.network != "" {
		cfg.Network = s.flags.network
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), cfg, nil)
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}
