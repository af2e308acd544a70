package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	mcpadapter "github.com/kirillkom/medical-doc-extractor/internal/adapters/mcp"
	"github.com/kirillkom/medical-doc-extractor/internal/bootstrap"
	"github.com/kirillkom/medical-doc-extractor/internal/core/domain"
)

var processCommand = &cli.Command{
	Name:      "process",
	Usage:     "Run the extraction workflow on one file and print the outcome",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "document to process", Required: true},
		&cli.StringFlag{Name: "id", Usage: "document id (defaults to the file name)"},
		&cli.StringFlag{Name: "mime", Usage: "mime type (detected when empty)"},
	},
	Action: func(c *cli.Context) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		path := c.String("file")
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		documentID := c.String("id")
		if documentID == "" {
			documentID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}

		app, err := bootstrap.New(c.Context, cfg, bootstrap.WithLogger(logger))
		if err != nil {
			return err
		}
		defer app.Close()

		info, err := app.ProcessUC.Process(c.Context, domain.Document{
			ID:       documentID,
			Content:  content,
			MimeType: detectMimeType(path, content, c.String("mime")),
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	},
}

var mcpCommand = &cli.Command{
	Name:  "mcp",
	Usage: "Serve the workflow as MCP tools over stdio",
	Action: func(c *cli.Context) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		app, err := bootstrap.New(c.Context, cfg, bootstrap.WithLogger(logger))
		if err != nil {
			return err
		}
		defer app.Close()

		return mcpadapter.NewServer(c.App.Version, app.ProcessUC, app.ResolveUC, logger).ServeStdio()
	},
}

func detectMimeType(path string, content []byte, explicit string) string {
	if explicit != "" {
		return domain.NormalizeMimeType(explicit)
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); domain.IsAllowedMimeType(byExt) {
		return byExt
	}
	return http.DetectContentType(content)
}
