package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chienchuanw/gma2-mcp/internal/config"
	"github.com/chienchuanw/gma2-mcp/internal/tools"
	"github.com/chienchuanw/gma2-mcp/ma2protocol"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// runtime carries the flag bindings shared by all commands. Configuration
// is resolved per command, after flags are parsed.
type runtime struct {
	v          *viper.Viper
	configFile string
	envFile    string
	bindErr    error
}

type app struct {
	cfg config.Config
	log *slog.Logger
}

func (rt *runtime) bind(flags *pflag.FlagSet, key, flag string) {
	if err := rt.v.BindPFlag(key, flags.Lookup(flag)); err != nil && rt.bindErr == nil {
		rt.bindErr = fmt.Errorf("bind flag %s: %w", flag, err)
	}
}

func (rt *runtime) load(cmd *cobra.Command) (*app, error) {
	if rt.bindErr != nil {
		return nil, rt.bindErr
	}
	if rt.envFile != "" {
		if err := config.LoadDotEnv(rt.envFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(rt.v, rt.configFile)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()}))
	return &app{cfg: cfg, log: logger}, nil
}

// connect opens a ready session. The caller must Shutdown it.
func (a *app) connect(ctx context.Context) (*ma2protocol.Session, error) {
	s := ma2protocol.NewSession(a.cfg.Session(a.log))
	if err := s.Connect(ctx, a.cfg.Endpoint(), a.cfg.Credentials()); err != nil {
		s.Shutdown()
		return nil, fmt.Errorf("connect to %s: %w", a.cfg.Endpoint(), err)
	}
	return s, nil
}

// withTools connects and runs fn with a dispatcher over the session.
func (a *app) withTools(ctx context.Context, fn func(*tools.Dispatcher) error) error {
	s, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer s.Shutdown()
	return fn(tools.New(s, a.log))
}
