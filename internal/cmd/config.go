package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adamancini/ersc/internal/config"
	"github.com/adamancini/ersc/internal/fsutil"
	"github.com/adamancini/ersc/internal/log"
	"github.com/adamancini/ersc/internal/templates"
)

type configInitResult struct {
	Path        string `json:"path" yaml:"path"`
	Template    string `json:"template" yaml:"template"`
	InstallPath string `json:"install_path,omitempty" yaml:"install_path,omitempty"`
}

type templateInfo struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the ersc config file",
	}

	cmd.AddCommand(newConfigInitCmd(a))
	cmd.AddCommand(newConfigPathCmd(a))
	cmd.AddCommand(newConfigShowCmd(a))
	cmd.AddCommand(newConfigTemplatesCmd(a))

	return cmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var (
		templateName string
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Init writes a commented config file from a template. When Elden Ring
can be found, its install path is filled in.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.env.cfgPath
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; pass --force to overwrite", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			var data templates.Data
			if root, err := a.installRoot(cmd.Context()); err == nil {
				data.InstallPath = root.String()
			} else {
				log.Debugf("install path left unset: %v", err)
			}

			content, err := templates.Render(templateName, data)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := fsutil.WriteFileAtomic(path, content, 0600); err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			if _, err := config.Load(path); err != nil {
				return fmt.Errorf("generated config is invalid: %w", err)
			}

			result := configInitResult{Path: path, Template: templateName, InstallPath: data.InstallPath}
			if a.env.out.Structured() {
				return a.env.out.Write(result)
			}
			a.printf("Wrote %s\n", path)
			if data.InstallPath == "" {
				a.printf("Elden Ring was not found; set install_path or run 'ersc locate --set PATH'\n")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", "full", "Template to start from")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	_ = cmd.RegisterFlagCompletionFunc("template", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return templates.List(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func newConfigPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "path",
		Short:       "Print the config file path",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.env.out.Structured() {
				return a.env.out.Write(map[string]string{"path": a.env.cfgPath})
			}
			fmt.Fprintln(a.stdout, a.env.cfgPath)
			return nil
		},
	}
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  `Show prints the configuration after defaults and environment overrides. The token is masked.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *a.env.cfg
			if cfg.Feed.Token != "" {
				cfg.Feed.Token = "********"
			}
			if cfg.KeepBackups == nil {
				keep := cfg.Keep()
				cfg.KeepBackups = &keep
			}
			if cfg.CacheDir == "" {
				cfg.CacheDir = a.env.cacheDir
			}
			if a.env.out.Structured() {
				return a.env.out.Write(cfg)
			}
			content, err := config.Marshal(&cfg, config.FormatTOML)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(content)
			return err
		},
	}
}

func newConfigTemplatesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "templates",
		Short:       "List config templates",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var list []templateInfo
			for _, name := range templates.List() {
				list = append(list, templateInfo{Name: name, Description: templates.GetDescription(name)})
			}
			if a.env.out.Structured() {
				return a.env.out.Write(list)
			}
			for _, t := range list {
				fmt.Fprintf(a.stdout, "%-10s %s\n", t.Name, t.Description)
			}
			return nil
		},
	}
}
