package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"

	"github.com/vidpage/vidpage/internal/api"
	"github.com/vidpage/vidpage/internal/config"
	"github.com/vidpage/vidpage/internal/dataclient"
	"github.com/vidpage/vidpage/internal/errors"
	"github.com/vidpage/vidpage/internal/frames"
	"github.com/vidpage/vidpage/internal/layout"
	"github.com/vidpage/vidpage/internal/llm"
	"github.com/vidpage/vidpage/internal/mcp"
	"github.com/vidpage/vidpage/internal/ops"
	"github.com/vidpage/vidpage/internal/pdf"
	"github.com/vidpage/vidpage/internal/render"
	"github.com/vidpage/vidpage/internal/web"
	"github.com/vidpage/vidpage/internal/youtube"
)

// maxStdinBytes bounds comment text read from stdin.
const maxStdinBytes = 1 << 20

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "vidpage",
		Usage:   "Interactive video transcript pages",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(db, cfg),
			mcpCmd(db, cfg),
			renderCmd(db, cfg),
			pdfCmd(db, cfg),
			searchCmd(db, cfg),
			commentsCmd(db, cfg),
			progressCmd(db, cfg),
			layoutCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// newService wires the backend from cfg: YouTube, the LLM, frame
// extraction (S3 when a bucket is configured, else local disk) and PDF.
func newService(db *sql.DB, cfg *config.Config) (*api.Service, error) {
	store, err := newFrameStore(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &api.Service{
		DB:           db,
		DataFile:     cfg.DataFile,
		YouTube:      youtube.New("", cfg.YouTubeAPIKey),
		AI:           llm.New(cfg),
		Frames:       frames.NewExtractor(store, nil),
		PDF:          pdf.New(),
		CommentLimit: cfg.CommentsMaxResults,
	}, nil
}

func newFrameStore(ctx context.Context, cfg *config.Config) (frames.Store, error) {
	if cfg.FramesS3Bucket != "" {
		return frames.NewS3Store(ctx, frames.S3Config{
			Endpoint:  cfg.FramesS3Endpoint,
			Bucket:    cfg.FramesS3Bucket,
			Region:    cfg.FramesS3Region,
			AccessKey: cfg.FramesS3AccessKey,
			SecretKey: cfg.FramesS3SecretKey,
		})
	}
	return frames.NewDiskStore(cfg.FramesDir)
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the video page and the JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "host:port to listen on (default from config)"},
			&cli.StringFlag{Name: "data", Aliases: []string{"d"}, Usage: "VideoDocument JSON file"},
		},
		Action: func(c *cli.Context) error {
			if listen := c.String("listen"); listen != "" {
				cfg.Listen = listen
			}
			if data := c.String("data"); data != "" {
				cfg.DataFile = data
			}

			svc, err := newService(db, cfg)
			if err != nil {
				return outputError(err)
			}

			var client dataclient.Client = &dataclient.LocalClient{Path: cfg.DataFile, Backend: svc}
			if cfg.APIBaseURL != "" {
				client = dataclient.NewHTTPClient(cfg.APIBaseURL, nil)
			}

			kv := ops.NewKVStore(db)
			router := web.NewRouter(web.Options{
				Config:  cfg,
				Client:  client,
				Layout:  kv,
				Notes:   kv,
				Version: Version,
				API:     func(r chi.Router) { api.Register(r, svc, Version) },
			})
			return web.Run(web.NewServer(cfg.Listen, router))
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			svc, err := newService(db, cfg)
			if err != nil {
				return outputError(err)
			}
			return mcp.Run(svc, cfg, Version)
		},
	}
}

// renderCmd creates the render command.
func renderCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Print the transcript section markup",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "nav", Usage: "Print the sidebar markup instead"},
		},
		Action: func(c *cli.Context) error {
			svc := &api.Service{DB: db, DataFile: cfg.DataFile}
			doc, err := svc.FetchDocument(c.Context, cfg.VideoID)
			if err != nil {
				return outputError(err)
			}

			var markup template.HTML
			if c.Bool("nav") {
				markup, err = render.Nav(doc.Sections, "")
			} else {
				markup, err = render.Sections(doc.Sections, "")
			}
			if err != nil {
				return outputError(err)
			}
			_, err = fmt.Fprintln(c.App.Writer, markup)
			return err
		},
	}
}

// pdfCmd creates the pdf command.
func pdfCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "pdf",
		Usage: "Write the transcript as a PDF",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file or directory (default: generated name in the current directory)"},
		},
		Action: func(c *cli.Context) error {
			svc := &api.Service{DB: db, DataFile: cfg.DataFile, PDF: pdf.New()}
			data, filename, err := svc.GeneratePDF(c.Context)
			if err != nil {
				return outputError(err)
			}

			out, err := ops.WriteExport(c.String("out"), filename, data)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, out)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search section titles and transcripts",
		ArgsUsage: "<query>",
		Action: func(c *cli.Context) error {
			svc := &api.Service{DB: db, DataFile: cfg.DataFile}
			results, err := svc.Search(c.Context, strings.Join(c.Args().Slice(), " "))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"results": results, "total": len(results)})
		},
	}
}

// commentsCmd creates the comments command group.
func commentsCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "comments",
		Usage: "List or post comments",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List local comments, then YouTube comments when configured",
				Flags: []cli.Flag{
					videoFlag(),
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum comments (default 20, max 100)"},
				},
				Action: func(c *cli.Context) error {
					svc := &api.Service{DB: db, YouTube: youtube.New("", cfg.YouTubeAPIKey), CommentLimit: cfg.CommentsMaxResults}
					videoID := videoArg(c, cfg)
					comments, err := svc.FetchComments(c.Context, videoID, c.Int("limit"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"videoId": videoID, "comments": comments, "total": len(comments)})
				},
			},
			{
				Name:      "post",
				Usage:     "Post a comment (text from arguments or stdin)",
				ArgsUsage: "[text]",
				Flags: []cli.Flag{
					videoFlag(),
					&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author name (default: Anonymous)"},
				},
				Action: func(c *cli.Context) error {
					text := strings.Join(c.Args().Slice(), " ")
					if text == "" && stdinHasData() {
						var err error
						if text, err = readStdinWithLimit(os.Stdin, maxStdinBytes); err != nil {
							return outputError(err)
						}
					}
					comment, err := ops.PostComment(c.Context, db, ops.PostCommentInput{
						VideoID: videoArg(c, cfg),
						Text:    text,
						Author:  c.String("author"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, comment)
				},
			},
		},
	}
}

// progressCmd creates the progress command group.
func progressCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "progress",
		Usage: "Read or save the playback position",
		Subcommands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print the saved position",
				Flags: []cli.Flag{videoFlag()},
				Action: func(c *cli.Context) error {
					p, err := ops.GetProgress(c.Context, db, videoArg(c, cfg))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, p)
				},
			},
			{
				Name:      "set",
				Usage:     "Save a position in seconds, MM:SS or HH:MM:SS",
				ArgsUsage: "<timestamp>",
				Flags:     []cli.Flag{videoFlag()},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return outputError(errors.NewValidation("exactly one timestamp is required"))
					}
					seconds, err := parseTimestamp(c.Args().First())
					if err != nil {
						return outputError(err)
					}
					p, err := ops.SetProgress(c.Context, db, videoArg(c, cfg), seconds)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, p)
				},
			},
		},
	}
}

// layoutCmd creates the layout command group.
func layoutCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "layout",
		Usage: "Inspect the saved panel widths",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the panel widths the page will open with",
				Action: func(c *cli.Context) error {
					p := layout.New(ops.NewKVStore(db), cfg.LayoutLeftDefault, cfg.LayoutRightDefault)
					state, err := p.Load(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, state)
				},
			},
		},
	}
}

// Helper functions

// videoFlag is the --video option shared by the per-video commands.
func videoFlag() cli.Flag {
	return &cli.StringFlag{Name: "video", Usage: "Video id (default from config)"}
}

// videoArg returns --video or the configured video id.
func videoArg(c *cli.Context, cfg *config.Config) string {
	if v := strings.TrimSpace(c.String("video")); v != "" {
		return v
	}
	return cfg.VideoID
}

// parseTimestamp accepts plain seconds or a colon timestamp.
func parseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, errors.NewValidation(fmt.Sprintf("invalid timestamp: %s", s))
		}
		total := 0
		for _, p := range parts {
			n, err := strconv.Atoi(p)
			if err != nil || n < 0 {
				return 0, errors.NewValidation(fmt.Sprintf("invalid timestamp: %s", s))
			}
			total = total*60 + n
		}
		return float64(total), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.NewValidation(fmt.Sprintf("invalid timestamp: %s", s))
	}
	return f, nil
}

// outputJSON marshals result to the app's writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	e := errors.As(err)
	if e.Code == errors.ErrInternal {
		return cli.Exit(err.Error(), 1)
	}
	return cli.Exit(fmt.Sprintf("[%s] %s", e.Code, e.Message), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdinWithLimit reads at most limit bytes from r. Longer input is a
// validation error rather than a silent truncation.
func readStdinWithLimit(r io.Reader, limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewValidation(fmt.Sprintf("stdin exceeds %d bytes", limit))
	}
	return strings.TrimSpace(string(data)), nil
}
