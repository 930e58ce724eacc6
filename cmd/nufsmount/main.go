// Command nufsmount mounts a nufs image file at a directory using FUSE.
package main

import (
	"log"
	"os"

	"github.com/go-nufs/nufs/bridge"
	"github.com/go-nufs/nufs/image"
	"github.com/go-nufs/nufs/storage"
	"github.com/hanwen/go-fuse/v2/fuse/nodefs"
	"github.com/hanwen/go-fuse/v2/fuse/pathfs"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "nufsmount",
		Usage:     "Mount a nufs image file at a mountpoint",
		ArgsUsage: "MOUNTPOINT IMAGE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "log every FUSE request"},
		},
		Action: mount,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("nufsmount: %s", err.Error())
	}
}

func mount(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return cli.Exit("usage: nufsmount MOUNTPOINT IMAGE", 1)
	}
	mountpoint := c.Args().Get(0)
	imagePath := c.Args().Get(1)

	log := logrus.New()
	if c.Bool("debug") {
		log.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(log)

	img, err := image.Open(imagePath, entry)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer img.Close()

	eng := storage.New(img)
	fs := bridge.New(eng, entry)

	nfs := pathfs.NewPathNodeFs(fs, nil)
	server, _, err := nodefs.MountRoot(mountpoint, nfs.Root(), &nodefs.Options{
		Debug: c.Bool("debug"),
	})
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	entry.WithField("mountpoint", mountpoint).Info("serving")
	server.Serve()
	return nil
}
