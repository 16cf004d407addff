package main

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/cliossg/tekir/assets"
	"github.com/cliossg/tekir/internal/feat/content"
	"github.com/cliossg/tekir/internal/feat/dash"
	"github.com/cliossg/tekir/internal/feat/lektor"
	"github.com/cliossg/tekir/internal/feat/site"
	"github.com/cliossg/tekir/internal/web"
	"github.com/cliossg/tekir/pkg/cl/app"
	"github.com/cliossg/tekir/pkg/cl/config"
	"github.com/cliossg/tekir/pkg/cl/git"
	"github.com/cliossg/tekir/pkg/cl/i18n"
	"github.com/cliossg/tekir/pkg/cl/logger"
	"github.com/cliossg/tekir/pkg/cl/middleware"
	"github.com/cliossg/tekir/pkg/cl/render"
)

// options holds the global flags. Non-empty values override the
// configuration file and the environment.
type options struct {
	configFile  string
	projectPath string
	outputPath  string
}

func (o *options) load() (*config.Config, error) {
	cfg, err := config.LoadFile(o.configFile)
	if err != nil {
		return nil, err
	}
	if o.projectPath != "" {
		cfg.Project.Path = o.projectPath
	}
	if o.outputPath != "" {
		cfg.Project.OutputPath = o.outputPath
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "tekir",
		Short:        "Admin dashboard for Lektor projects",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", config.DefaultFile, "configuration file")
	root.PersistentFlags().StringVar(&opts.projectPath, "project", "", "Lektor project directory")
	root.PersistentFlags().StringVar(&opts.outputPath, "output-path", "", "build output directory")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the admin and the site preview",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				return runServe(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "build",
			Short: "Build the site",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				return runBuild(cmd, cfg)
			},
		},
		&cobra.Command{
			Use:   "clean",
			Short: "Remove the build output",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				return runClean(cmd, cfg)
			},
		},
		&cobra.Command{
			Use:   "deploy <server>",
			Short: "Publish the build output to a configured server",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := opts.load()
				if err != nil {
					return err
				}
				return runDeploy(cmd, cfg, args[0])
			},
		},
	)
	return root
}

// adminLanguage resolves the configured admin language, falling back to
// English for unsupported codes.
func adminLanguage(code string, log logger.Logger) language.Tag {
	tag, ok := i18n.Parse(code)
	if !ok {
		log.Warnf("Unsupported admin language %q, using en", code)
	}
	return tag
}

func openProject(cfg *config.Config, log logger.Logger) (*lektor.Project, *site.Builder, error) {
	project, err := lektor.Open(cfg.Project.Path, log)
	if err != nil {
		return nil, nil, err
	}
	builder := site.NewBuilder(cfg.Lektor.Command, project.File(), cfg.Project.ResolvedOutputPath(), log)
	return project, builder, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Log.Level)
	log.Infof("Starting Tekir [%s mode]", cfg.Env)

	project, builder, err := openProject(cfg, log)
	if err != nil {
		return err
	}
	log.Infof("Project: %s (%s)", project.Name(), project.Root())
	log.Infof("Output: %s", builder.OutputPath())

	lang := adminLanguage(cfg.Admin.Language, log)

	publisher := site.NewPublisher(builder, git.NewClient(log), cfg.Publish, log)
	siteService := site.NewService(builder, publisher, log)
	contentService := content.NewService(log)

	renderer := render.NewRenderer(assets.Templates(), nil, cfg.Admin.Minify, log)
	adminMw := lektor.AdminContextMiddleware(project)

	watcher := lektor.NewWatcher(project, log)
	watcher.OnReload(func(err error) {
		if err != nil {
			log.Errorf("Cannot reload project: %v", err)
		}
	})
	preview := site.NewPreviewServer(siteService, builder.OutputPath(), cfg.Server.PreviewAddr, cfg.Server.Addr, i18n.Code(lang), log)

	contentHandler := content.NewHandler(contentService, renderer, adminMw, log)
	siteHandler := site.NewHandler(siteService, contentService, renderer, adminMw, log)
	dashHandler := dash.NewHandler(contentService, siteService, renderer, adminMw, lang, log)
	fileServer := web.NewFileServer(assets.Static(), log)

	router := chi.NewRouter()
	middleware.DefaultStack(router)
	if cfg.Auth.Enabled() {
		log.Infof("Basic auth enabled for %s", cfg.Auth.Username)
		router.Use(middleware.BasicAuth(cfg.Auth.Username, cfg.Auth.PasswordHash))
	}

	lc := app.Setup(log, watcher, preview, contentHandler, siteHandler, dashHandler, fileServer)
	if err := lc.Start(ctx, router); err != nil {
		return fmt.Errorf("cannot start: %w", err)
	}
	defer lc.Stop(context.Background())

	log.Infof("Admin listening on http://%s%s/", cfg.Server.Addr, lektor.AdminPrefix)
	return app.Serve(ctx, router, cfg.Server.Addr, log)
}

func runBuild(cmd *cobra.Command, cfg *config.Config) error {
	log := logger.New(cfg.Log.Level)
	_, builder, err := openProject(cfg, log)
	if err != nil {
		return err
	}

	failures, err := builder.Build(cmd.Context())
	if err != nil {
		return err
	}
	for _, f := range failures {
		fmt.Fprintln(cmd.ErrOrStderr(), f)
	}
	if len(failures) > 0 {
		return fmt.Errorf("build failed for %d artifacts", len(failures))
	}
	fmt.Fprintln(cmd.OutOrStdout(), builder.OutputPath())
	return nil
}

func runClean(cmd *cobra.Command, cfg *config.Config) error {
	log := logger.New(cfg.Log.Level)
	_, builder, err := openProject(cfg, log)
	if err != nil {
		return err
	}
	return builder.Clean(cmd.Context())
}

func runDeploy(cmd *cobra.Command, cfg *config.Config, serverID string) error {
	log := logger.New(cfg.Log.Level)
	project, builder, err := openProject(cfg, log)
	if err != nil {
		return err
	}
	server, ok := project.Server(serverID)
	if !ok {
		return fmt.Errorf("unknown server: %s", serverID)
	}

	publisher := site.NewPublisher(builder, git.NewClient(log), cfg.Publish, log)
	lines, err := publisher.Publish(cmd.Context(), server)
	for _, l := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), l)
	}
	return err
}
