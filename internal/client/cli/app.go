package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/gophidentity/internal/client/client"
	"github.com/dmitrijs2005/gophidentity/internal/client/config"
)

// getSimpleText, getPassword and confirm are indirections for tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	confirm       = Confirm
)

type App struct {
	config *config.Config
	api    client.Client
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	api, err := client.NewHTTPClient(c.ServerURL, c.RequestTimeout)
	if err != nil {
		return nil, err
	}

	return &App{config: c, api: api, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) isLoggedIn() bool {
	_, err := a.api.Session()
	return err == nil
}

// status is the user name shown in the prompt.
func (a *App) status() string {
	s, err := a.api.Session()
	if err != nil {
		return "anonymous"
	}
	return s.Name
}

// Run starts the REPL on a.reader and returns when the user exits or input
// ends.
func (a *App) Run(ctx context.Context) {
	printlnFn("Welcome to gophidentity CLI (type 'help' for commands)")

	if err := a.api.Ping(ctx); err != nil {
		printlnFn("warning:", err)
	}

	runREPL(ctx, a, a.status, a.reader)
}
