// Package cli implements atelierctl, a command-line runner for the flow
// catalog
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	app "github.com/kode4food/atelier"
	"github.com/kode4food/atelier/internal/config"
	"github.com/kode4food/atelier/internal/flow"
	"github.com/kode4food/atelier/internal/flows"
	"github.com/kode4food/atelier/internal/model"
	"github.com/kode4food/atelier/internal/schema"
	"github.com/kode4food/atelier/pkg/api"
)

type (
	// Options configures the command-line application
	Options struct {
		Out       io.Writer
		NewClient func(*config.Config) model.Client
	}

	runner struct {
		Options
	}
)

var (
	ErrFlowNameMissing = errors.New("flow name missing")
	ErrInputConflict   = errors.New("use either --input or --input-file")
)

// NewApp creates the atelierctl application. Flows run in-process against
// the configured model backend
func NewApp(opts Options) *cli.App {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.NewClient == nil {
		opts.NewClient = httpClient
	}
	r := &runner{Options: opts}

	return &cli.App{
		Name:      "atelierctl",
		Usage:     "Run atelier flows from the command line",
		Version:   app.Version,
		Writer:    opts.Out,
		ErrWriter: opts.Out,

		// exit codes are left to the caller of Run
		ExitErrHandler: func(*cli.Context, error) {},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "File of environment settings to load",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List the available flows",
				Action: r.list,
			},
			{
				Name:      "run",
				Usage:     "Run a flow and print its output as JSON",
				ArgsUsage: "<flow>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "Flow input as a JSON object",
					},
					&cli.StringFlag{
						Name:    "input-file",
						Aliases: []string{"f"},
						Usage:   "File holding the flow input",
					},
				},
				Action: r.run,
			},
		},
	}
}

func (r *runner) list(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(r.Out, 0, 0, 2, ' ', 0)
	for _, def := range reg.List() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			def.Name, def.Kind(), def.Description)
	}
	return w.Flush()
}

func (r *runner) run(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit(ErrFlowNameMissing, 2)
	}

	input, err := readInput(c)
	if err != nil {
		return cli.Exit(err, 2)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg)
	if err != nil {
		return err
	}

	exec := flow.NewExecutor(reg, r.NewClient(cfg))
	out, err := exec.Run(c.Context, api.Name(name), input)
	if err != nil {
		return cli.Exit(err, 1)
	}

	enc := json.NewEncoder(r.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readInput(c *cli.Context) (api.Args, error) {
	raw := c.String("input")
	if path := c.String("input-file"); path != "" {
		if raw != "" {
			return nil, ErrInputConflict
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		raw = string(data)
	}
	if raw == "" {
		return api.Args{}, nil
	}
	return schema.ParseObject([]byte(raw))
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(c.String("env-file")); err != nil {
		return nil, err
	}
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRegistry(cfg *config.Config) (*flow.Registry, error) {
	return flows.NewRegistry(flows.Models{
		Text:  cfg.Model.TextModel,
		Image: cfg.Model.ImageModel,
	}, nil)
}

func httpClient(cfg *config.Config) model.Client {
	return model.NewHTTPClient(model.HTTPConfig{
		BaseURL: cfg.Model.BaseURL,
		APIKey:  cfg.Model.APIKey,
		Timeout: cfg.Model.Timeout,
	})
}
