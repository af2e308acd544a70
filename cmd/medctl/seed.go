package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kirillkom/medical-doc-extractor/internal/bootstrap"
	"github.com/kirillkom/medical-doc-extractor/internal/infrastructure/repository/sqlstore"
	"github.com/kirillkom/medical-doc-extractor/internal/refdata"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Load reference data into the database",
	Subcommands: []*cli.Command{
		{
			Name:  "categories",
			Usage: "Upsert document categories and their prompts from a YAML file",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "YAML file with a categories list", Required: true},
			},
			Action: seedCategories,
		},
		{
			Name:  "examination-types",
			Usage: "Upsert examination types and aliases from an XLSX workbook",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "workbook with code, name and aliases columns", Required: true},
				&cli.StringFlag{Name: "sheet", Usage: "sheet name (defaults to the first sheet)"},
			},
			Action: seedExaminationTypes,
		},
	},
}

func seedCategories(c *cli.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	f, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("open categories file: %w", err)
	}
	defer f.Close()

	categories, err := refdata.ParseCategories(f)
	if err != nil {
		return err
	}

	db, dialect, err := bootstrap.OpenDatabase(c.Context, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqlstore.EnsureSchema(c.Context, db, dialect); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	seeder := refdata.NewSeeder(sqlstore.NewCategoryRepository(db, dialect), nil, logger)
	_, err = seeder.SeedCategories(c.Context, categories)
	return err
}

func seedExaminationTypes(c *cli.Context) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("read workbook: %w", err)
	}
	rows, err := refdata.ParseExaminationTypes(data, c.String("sheet"))
	if err != nil {
		return err
	}

	db, dialect, err := bootstrap.OpenDatabase(c.Context, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := sqlstore.EnsureSchema(c.Context, db, dialect); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	seeder := refdata.NewSeeder(nil, sqlstore.NewExaminationTypeRepository(db, dialect), logger)
	_, err = seeder.SeedExaminationTypes(c.Context, rows)
	return err
}
