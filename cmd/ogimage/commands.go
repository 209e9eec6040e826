package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/ogimage"
	"github.com/eringen/ogimage/metatag"
	"github.com/eringen/ogimage/thumbnail"
	"github.com/eringen/ogimage/views"
)

type globalFlags struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	var flags globalFlags

	root := &cobra.Command{
		Use:           "ogimage",
		Short:         "Blog engine that picks an og:image for every page",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", ogimage.EnvOr("OGIMAGE_CONFIG", ""), "path to a YAML config file")

	root.AddCommand(
		newServeCommand(&flags),
		newResolveCommand(&flags),
		newDefaultCommand(&flags),
		newVersionCommand(),
	)
	return root
}

func loadConfig(flags *globalFlags) (ogimage.SiteConfig, error) {
	cfg, err := ogimage.LoadConfig(flags.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.Version = version
	return cfg, nil
}

func newServeCommand(flags *globalFlags) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			app := ogimage.New(cfg, views.Default())
			defer app.Close()
			if err := app.Init(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() { errCh <- app.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return app.Echo.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func newResolveCommand(flags *globalFlags) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "resolve [id...]",
		Short: "Print the og:image markup a page would get",
		Long: `Resolve the og:image for a page without serving it.

Kinds: listing (ids are post slugs in display order), single (one post slug),
attachment (one image filename), other (one page slug).`,
		Example: `  ogimage resolve --kind single hello-world
  ogimage resolve --kind listing first-post second-post`,
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := pageContext(kind, args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			// Resolution does not need admin credentials; fill them so Init
			// accepts a read-only config.
			if cfg.AdminPassword == "" {
				cfg.AdminPassword = "unused"
			}
			if cfg.SessionSecret == "" {
				cfg.SessionSecret = "unused"
			}
			cfg.LogLevel = "warn"
			app := ogimage.New(cfg, views.Default())
			defer app.Close()
			if err := app.Init(); err != nil {
				return err
			}
			res, ok := app.Resolver.Resolve(pc)
			if !ok {
				fmt.Fprintln(cmd.ErrOrStderr(), "page is excluded; the default image stands")
			}
			return metatag.Write(cmd.OutOrStdout(), res, cfg.Version)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "single", "page kind: listing, single, attachment, other")
	return cmd
}

func pageContext(kind string, args []string) (thumbnail.PageContext, error) {
	one := func() (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%s pages take exactly one id, got %d", kind, len(args))
		}
		return args[0], nil
	}
	switch kind {
	case "listing":
		ids := make([]thumbnail.ContentID, len(args))
		for i, a := range args {
			ids[i] = thumbnail.ContentID(a)
		}
		return thumbnail.Listing("", ids...), nil
	case "single":
		id, err := one()
		return thumbnail.Single(thumbnail.ContentID(id)), err
	case "attachment":
		id, err := one()
		return thumbnail.Attachment(thumbnail.ContentID(id)), err
	case "other":
		id, err := one()
		return thumbnail.Other(id), err
	default:
		return thumbnail.PageContext{}, fmt.Errorf("unknown page kind %q", kind)
	}
}

func newDefaultCommand(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "default",
		Short: "Show or change the default og:image",
		Long:  "The default is read once at server start; restart the server after changing it.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get",
			Short: "Print the stored default image URL",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := openStore(flags)
				if err != nil {
					return err
				}
				defer store.Close()
				v, err := store.GetSetting(ogimage.SettingDefaultImage)
				if err != nil {
					return err
				}
				if v == "" {
					return errors.New("no default image stored")
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <url>",
			Short: "Store a new default image URL",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				u := strings.TrimSpace(args[0])
				if err := (thumbnail.Config{DefaultImageURL: u}).Validate(); err != nil {
					return err
				}
				store, err := openStore(flags)
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.SetSetting(ogimage.SettingDefaultImage, u); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "default image set to %s\n", u)
				return nil
			},
		},
	)
	return cmd
}

func openStore(flags *globalFlags) (*ogimage.Store, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	path := cfg.DatabasePath
	if path == "" {
		path = "data/blog.db"
	}
	return ogimage.NewStore(path)
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ogimage version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ogimage %s\n", version)
		},
	}
}
