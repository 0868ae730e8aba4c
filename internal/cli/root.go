// Package cli implements sidequestctl, the operator command line
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sidequest/internal/services"
)

// Migrator applies and reverts schema migrations
type Migrator interface {
	Migrate() error
	Rollback(steps int) error
	MigrationVersion() (uint, bool, error)
}

// Backend opens the parts of the application a command needs. Commands
// that only touch the schema never build the service graph.
type Backend interface {
	Migrator(ctx context.Context) (Migrator, error)
	AIQuests(ctx context.Context) (services.AIQuestService, error)
	Notifications(ctx context.Context) (services.NotificationService, error)
	Challenges(ctx context.Context) (services.ChallengeService, error)
	Close() error
}

// App holds what every subcommand shares
type App struct {
	Backend Backend
	Out     io.Writer
	Config  *viper.Viper
}

// NewRootCmd creates the top-level "sidequestctl" command
func NewRootCmd(app *App) *cobra.Command {
	if app.Config == nil {
		app.Config = viper.New()
	}

	root := &cobra.Command{
		Use:           "sidequestctl",
		Short:         "Operate a SideQuest deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.loadConfig(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.Backend == nil {
				return nil
			}
			return app.Backend.Close()
		},
	}
	root.SetOut(app.Out)

	addGlobalFlags(root.PersistentFlags())

	root.AddCommand(
		newMigrateCmd(app),
		newGenerateCmd(app),
		newNotificationsCmd(app),
		newChallengesCmd(app),
	)
	return root
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default: ./sidequestctl.yaml when present)")
	fs.StringP("output", "o", "text", "output format: text or json")
	fs.Int64("as-user", 1, "user id recorded as the author of generated quests")
}

// loadConfig layers flags over SIDEQUESTCTL_* variables over the config file
func (a *App) loadConfig(cmd *cobra.Command) error {
	v := a.Config
	v.SetEnvPrefix("SIDEQUESTCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", file, err)
		}
		return nil
	}

	v.SetConfigName("sidequestctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func (a *App) jsonOutput() bool {
	return strings.EqualFold(a.Config.GetString("output"), "json")
}

func (a *App) writeJSON(v interface{}) error {
	enc := json.NewEncoder(a.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.Out, format, args...)
}
