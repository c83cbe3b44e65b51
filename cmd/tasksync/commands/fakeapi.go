package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/tasksync/internal/model"
	"github.com/slok/tasksync/internal/remote/fake"
)

type FakeAPICommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listenAddr string
	latency    time.Duration
	projects   []string
}

// NewFakeAPICommand returns the fake-api command.
func NewFakeAPICommand(rootCmd *RootCommand, app *kingpin.Application) *FakeAPICommand {
	c := &FakeAPICommand{rootCmd: rootCmd}

	c.Cmd = app.Command("fake-api", "Serve an in-memory Task API, useful to try tasksync locally.")
	c.Cmd.Flag("listen", "Listen address.").Default("127.0.0.1:8080").StringVar(&c.listenAddr)
	c.Cmd.Flag("latency", "Latency added to every request.").DurationVar(&c.latency)
	c.Cmd.Flag("project", "Project name to seed, can be repeated.").Default("Inbox").StringsVar(&c.projects)

	return c
}

func (c FakeAPICommand) Name() string { return c.Cmd.FullCommand() }

func (c FakeAPICommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger.WithValues(map[string]any{"addr": c.listenAddr})

	api := fake.NewAPI(fake.APIConfig{
		Projects: seedProjects(c.projects),
		Latency:  c.latency,
	})

	logger.Infof("Serving fake Task API")
	if err := fake.ListenAndServe(ctx, c.listenAddr, api, logger); err != nil {
		return fmt.Errorf("fake API server failed: %w", err)
	}

	return nil
}

func seedProjects(names []string) []model.Project {
	projects := make([]model.Project, 0, len(names))
	for i, name := range names {
		id := fmt.Sprintf("project-%d", i+1)
		projects = append(projects, model.Project{ID: id, ServerID: id, Name: name})
	}
	return projects
}
