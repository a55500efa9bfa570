package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/chienchuanw/gma2-mcp/internal/config"
	"github.com/chienchuanw/gma2-mcp/ma2protocol"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute runs the gma2 command tree until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rt := &runtime{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "gma2",
		Short:         "Drive a grandMA2 console over telnet",
		Long:          "gma2 builds grandMA2 command lines and sends them to a console over its telnet interface, from the shell, an interactive REPL, TOML scripts or a websocket bridge.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rt.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/gma2/config.toml)")
	flags.StringVar(&rt.envFile, "env-file", ".env", "dotenv file read before the environment")
	flags.String(config.KeyHost, ma2protocol.DefaultHost, "console address")
	flags.Int(config.KeyPort, ma2protocol.DefaultPort, "console telnet port")
	flags.String(config.KeyUser, ma2protocol.DefaultUser, "console user")
	flags.String(config.KeyPassword, ma2protocol.DefaultPassword, "console password")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	rt.bind(flags, config.KeyHost, config.KeyHost)
	rt.bind(flags, config.KeyPort, config.KeyPort)
	rt.bind(flags, config.KeyUser, config.KeyUser)
	rt.bind(flags, config.KeyPassword, config.KeyPassword)
	rt.bind(flags, config.KeyLogLevel, "log-level")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(rt),
		newSendCmd(rt),
		newReplCmd(rt),
		newGroupCmd(rt),
		newSequenceCmd(rt),
		newRunCmd(rt),
		newServeCmd(rt),
		newMonitorCmd(rt),
	)

	return rootCmd
}
