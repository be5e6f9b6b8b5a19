package main

import (
	"flag"
	"fmt"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

// NewKlogFlagSet bridges klog's verbosity and output flags, registered on
// a flag.FlagSet, into cli.Flag values the urfave/cli app can expose as
// top-level cobs flags.
func NewKlogFlagSet() []cli.Flag {
	fs := flag.NewFlagSet("klog", flag.PanicOnError)
	klog.InitFlags(fs)

	fs.Set("v", "1")
	fs.Set("logtostderr", "true")

	return []cli.Flag{
		&cli.IntFlag{
			Name:    "v",
			Usage:   "number for the log level verbosity",
			EnvVars: []string{"COBS_V"},
			Value:   1,
			Action: func(cctx *cli.Context, v int) error {
				return fs.Set("v", fmt.Sprint(v))
			},
		},
		&cli.BoolFlag{
			Name:        "logtostderr",
			Usage:       "log to standard error instead of files",
			EnvVars:     []string{"COBS_LOGTOSTDERR"},
			DefaultText: "true",
			Action: func(cctx *cli.Context, v bool) error {
				return fs.Set("logtostderr", fmt.Sprint(v))
			},
		},
		&cli.StringFlag{
			Name:    "vmodule",
			Usage:   "comma-separated list of pattern=N settings for file-filtered logging",
			EnvVars: []string{"COBS_VMODULE"},
			Action: func(cctx *cli.Context, v string) error {
				if v != "" {
					return fs.Set("vmodule", v)
				}
				return nil
			},
		},
	}
}
