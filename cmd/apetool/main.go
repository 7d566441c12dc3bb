package main

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/openztcc/apecore"
	"github.com/openztcc/apecore/ape"
	"github.com/openztcc/apecore/export"
	"github.com/openztcc/apecore/frameset"
	"github.com/urfave/cli/v2"
)

const defaultDB = "apetool.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

var decodeFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "palette",
		EnvVars: []string{"APETOOL_PALETTE"},
		Usage:   "palette `FILE` overriding the embedded one",
	},
	&cli.IntFlag{
		Name:  "profile",
		Value: int(ape.ProfileRGBA),
		Usage: "decode channel order, 0 for RGBA or 1 for BGRA",
	},
	&cli.BoolFlag{
		Name:  "no-alpha",
		Usage: "composite frames onto a magenta background",
	},
	&cli.BoolFlag{
		Name:  "background-only",
		Usage: "only output the background frame",
	},
	&cli.IntFlag{
		Name:    "workers",
		EnvVars: []string{"APETOOL_WORKERS"},
		Value:   1,
		Usage:   "number of frames to decode concurrently",
	},
}

// decode runs a full decode and reports, rather than fails on, frames that
// couldn't be decoded.
func decode(c *cli.Context, file string) (*apecore.Animation, error) {
	logger := newLogger(c)

	opts := []apecore.Option{
		apecore.WithLogger(logger),
		apecore.WithWorkers(c.Int("workers")),
	}
	if c.Bool("no-alpha") {
		opts = append(opts, apecore.WithNoAlpha())
	}

	var anim *apecore.Animation
	err := apecore.WithSession(file, c.String("palette"), ape.Profile(c.Int("profile")), func(s *apecore.Session) error {
		var err error
		anim, err = s.DecodeAll(frameset.Options{BackgroundOnly: c.Bool("background-only")})
		return err
	}, opts...)

	var partial *apecore.PartialError
	if errors.As(err, &partial) {
		fmt.Fprintf(os.Stderr, "%s: frames %v failed to decode\n", file, partial.Failed())
		if len(anim.Frames) == 0 {
			return nil, err
		}
		return anim, nil
	}
	return anim, err
}

func main() {
	app := cli.NewApp()

	app.Name = "apetool"
	app.Usage = "APE sprite inspection and extraction utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"APETOOL_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to catalog database",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Print the header of a sprite",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				file := c.Args().First()
				h, err := apecore.GetHeader(file)
				if err != nil {
					return cli.Exit(err, 1)
				}

				fmt.Printf("Speed:      %d ms\n", h.Speed)
				fmt.Printf("Frames:     %d\n", h.FrameCount)
				fmt.Printf("Background: %t\n", h.Background)
				if h.DirectColor() {
					fmt.Println("Palette:    none (direct color)")
				} else {
					resolved, err := apecore.ResolvePalettePath(file)
					if err != nil {
						return cli.Exit(err, 1)
					}
					fmt.Printf("Palette:    %s\n", h.PaletteName)
					fmt.Printf("Resolved:   %s (valid: %t)\n", resolved, apecore.ValidatePaletteFile(resolved))
				}

				return nil
			},
		},
		{
			Name:      "resolve",
			Usage:     "Print where the palette of a sprite is expected to be",
			ArgsUsage: "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				resolved, err := apecore.ResolvePalettePath(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
				if resolved == "" {
					return cli.Exit("sprite carries direct color", 1)
				}
				fmt.Println(resolved)

				return nil
			},
		},
		{
			Name:      "validate",
			Usage:     "Check whether files are sprites or palettes",
			ArgsUsage: "FILE...",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				invalid := 0
				for _, file := range c.Args().Slice() {
					switch {
					case apecore.ValidateGraphicFile(file):
						fmt.Printf("%s: sprite\n", file)
					case apecore.ValidatePaletteFile(file):
						fmt.Printf("%s: palette\n", file)
					default:
						fmt.Printf("%s: invalid\n", file)
						invalid++
					}
				}

				if invalid > 0 {
					return cli.Exit(fmt.Sprintf("%d invalid file(s)", invalid), 1)
				}
				return nil
			},
		},
		{
			Name:      "extract",
			Usage:     "Decode a sprite into one PNG per frame",
			ArgsUsage: "FILE DIRECTORY",
			Flags:     decodeFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				file, dir := c.Args().Get(0), c.Args().Get(1)
				anim, err := decode(c, file)
				if err != nil {
					return cli.Exit(err, 1)
				}

				if err := os.MkdirAll(dir, 0o755); err != nil {
					return cli.Exit(err, 1)
				}
				files, err := export.WritePNGs(dir, filepath.Base(file), anim.Result)
				if err != nil {
					return cli.Exit(err, 1)
				}
				for _, f := range files {
					fmt.Println(f)
				}

				return nil
			},
		},
		{
			Name:      "gif",
			Usage:     "Decode a sprite into an animated GIF preview",
			ArgsUsage: "FILE OUTPUT",
			Flags:     decodeFlags,
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				anim, err := decode(c, c.Args().Get(0))
				if err != nil {
					return cli.Exit(err, 1)
				}

				f, err := os.Create(c.Args().Get(1))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer f.Close()

				if err := export.EncodeGIF(f, anim.Result, anim.Speed); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
		{
			Name:      "scan",
			Usage:     "Scan filesystem and catalog every sprite",
			ArgsUsage: "DIRECTORY",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				db, err := apecore.NewCatalog(c.String("db"), newLogger(c))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer db.Close()

				id, n, err := db.Scan(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
				fmt.Printf("Scan %s: %d sprite(s)\n", id, n)

				return nil
			},
		},
		{
			Name:  "list",
			Usage: "List cataloged sprites",
			Action: func(c *cli.Context) error {
				db, err := apecore.NewCatalog(c.String("db"), newLogger(c))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer db.Close()

				sprites, err := db.Sprites()
				if err != nil {
					return cli.Exit(err, 1)
				}
				for _, s := range sprites {
					palette := s.PalettePath
					if palette == "" {
						palette = "-"
					}
					fmt.Printf("%s\t%d\t%d\t%t\t%s\n", s.Path, s.Header.FrameCount, s.Header.Speed, s.Header.Background, palette)
				}

				return nil
			},
		},
		{
			Name:      "preview",
			Usage:     "Write the cataloged preview of a sprite as PNG",
			ArgsUsage: "FILE OUTPUT",
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				db, err := apecore.NewCatalog(c.String("db"), newLogger(c))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer db.Close()

				file, err := filepath.Abs(c.Args().Get(0))
				if err != nil {
					return cli.Exit(err, 1)
				}
				m, err := db.Preview(file)
				if err != nil {
					return cli.Exit(err, 1)
				}
				if m == nil {
					return cli.Exit(fmt.Sprintf("no preview for %s", file), 1)
				}

				f, err := os.Create(c.Args().Get(1))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer f.Close()

				if err := png.Encode(f, m); err != nil {
					return cli.Exit(err, 1)
				}

				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
