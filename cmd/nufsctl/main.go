// Command nufsctl is an operator tool for inspecting a nufs image file
// without mounting it.
package main

import (
	"io"
	"log"
	"os"

	"github.com/go-nufs/nufs/diag"
	"github.com/go-nufs/nufs/image"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "nufsctl",
		Usage: "Inspect a nufs image file",
		Commands: []*cli.Command{
			{
				Name:      "dump-blocks",
				Usage:     "Dump the block allocation bitmap as CSV",
				ArgsUsage: "IMAGE",
				Action:    withImage(diag.DumpBlockBitmapCSV),
			},
			{
				Name:      "dump-inodes-bitmap",
				Usage:     "Dump the inode allocation bitmap as CSV",
				ArgsUsage: "IMAGE",
				Action:    withImage(diag.DumpInodeBitmapCSV),
			},
			{
				Name:      "dump-inodes",
				Usage:     "Dump every inode record as CSV",
				ArgsUsage: "IMAGE",
				Action:    withImage(diag.DumpInodesCSV),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("nufsctl: %s", err.Error())
	}
}

func withImage(dump func(*image.Image, io.Writer) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return cli.Exit("usage: nufsctl <command> IMAGE", 1)
		}

		log := logrus.NewEntry(logrus.New())
		img, err := image.Open(c.Args().Get(0), log)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer img.Close()

		return dump(img, os.Stdout)
	}
}
