package main

import (
	"context"
	"strings"

	"github.com/goliatone/go-flexforms/pkg/definition/pgstore"
)

// MigrateCommand creates the definition tables.
type MigrateCommand struct {
	Meta
}

func (c *MigrateCommand) Help() string {
	return strings.TrimSpace(`
Usage: flexforms migrate -database-url=URL

  Creates the flexforms schema and its forms, fields and field_modifiers
  tables when they do not exist.
` + commonFlagsHelp)
}

func (c *MigrateCommand) Synopsis() string {
	return "Create the Postgres definition tables"
}

func (c *MigrateCommand) Run(args []string) int {
	fs := c.FlagSet("migrate")
	if !c.parseFlags(fs, args, c.Help()) {
		return 1
	}
	store, closeFn, ok := c.openStore()
	if !ok {
		return 1
	}
	defer closeFn()

	if err := store.Migrate(context.Background()); err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	c.Ui.Info("schema is up to date")
	return 0
}

// ListCommand prints the names of stored forms.
type ListCommand struct {
	Meta
}

func (c *ListCommand) Help() string {
	return strings.TrimSpace(`
Usage: flexforms list -database-url=URL

  Lists the forms stored in Postgres, usable as pg:<name> references.
` + commonFlagsHelp)
}

func (c *ListCommand) Synopsis() string {
	return "List forms stored in Postgres"
}

func (c *ListCommand) Run(args []string) int {
	fs := c.FlagSet("list")
	if !c.parseFlags(fs, args, c.Help()) {
		return 1
	}
	store, closeFn, ok := c.openStore()
	if !ok {
		return 1
	}
	defer closeFn()

	names, err := store.Names(context.Background())
	if err != nil {
		c.Ui.Error(err.Error())
		return 1
	}
	for _, name := range names {
		c.Ui.Output(name)
	}
	return 0
}

func (m *Meta) openStore() (*pgstore.Store, func(), bool) {
	if m.databaseURL == "" {
		m.Ui.Error("a database url is required: pass -database-url or set " + EnvDatabaseURL)
		return nil, nil, false
	}
	store, closeFn, err := pgstore.Open(context.Background(), m.databaseURL, pgstore.WithLogger(m.Logger().Named("pgstore")))
	if err != nil {
		m.Ui.Error(err.Error())
		return nil, nil, false
	}
	return store, closeFn, true
}
