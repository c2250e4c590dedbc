// Package cli contains the depthoverlay command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	flagConfig   = "config"
	flagDebug    = "debug"
	flagOut      = "out"
	flagFormat   = "format"
	flagPretty   = "pretty"
	flagCount    = "count"
	flagSettle   = "settle"
	flagParallel = "parallel"
)

var app = &cli.App{
	Name:            "depthoverlay",
	Usage:           "render depth maps from depth cameras and from photos with embedded depth",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "extract",
			Usage:     "write the depth bitmap stored in each image",
			UsageText: "depthoverlay extract --out DIR [--format png|jpeg|qoi|ppm] [--pretty] <image>...",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     flagOut,
					Usage:    "directory to write bitmaps into",
					Required: true,
				},
				&cli.StringFlag{
					Name:  flagFormat,
					Usage: "bitmap encoding; defaults to the configured render format",
				},
				&cli.BoolFlag{
					Name:  flagPretty,
					Usage: "write a hue ramp instead of grayscale",
				},
				&cli.IntFlag{
					Name:  flagParallel,
					Usage: "number of images to process at once; defaults to the number of CPUs",
				},
			},
			Action: ExtractAction,
		},
		{
			Name:      "inspect",
			Usage:     "list the auxiliary depth entries of an image",
			UsageText: "depthoverlay inspect <image>",
			Action:    InspectAction,
		},
		{
			Name:      "capture",
			Usage:     "take photos with the configured camera and write their depth bitmaps",
			UsageText: "depthoverlay --config FILE capture --out DIR [--count N]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     flagOut,
					Usage:    "directory to write photos and bitmaps into",
					Required: true,
				},
				&cli.IntFlag{
					Name:  flagCount,
					Usage: "number of photos to take",
					Value: 1,
				},
				&cli.BoolFlag{
					Name:  flagPretty,
					Usage: "write a hue ramp instead of grayscale",
				},
			},
			Action: CaptureAction,
		},
		{
			Name:      "watch",
			Usage:     "write depth bitmaps for every image that lands in a directory",
			UsageText: "depthoverlay watch --out DIR <dir>",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     flagOut,
					Usage:    "directory to write bitmaps into",
					Required: true,
				},
				&cli.DurationFlag{
					Name:  flagSettle,
					Usage: "how long a file must stay unchanged before it is read",
				},
				&cli.BoolFlag{
					Name:  flagPretty,
					Usage: "write a hue ramp instead of grayscale",
				},
			},
			Action: WatchAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
