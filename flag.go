package main

import (
	"flag"
	"fmt"
	"os"
)

var (
	hf         bool
	configPath string
	logLevel   string
)

func InitFlag() {
	flag.BoolVar(&hf, "h", false, "this help")
	flag.StringVar(&configPath, "c", "./conf/conf.toml", "set config `file`")
	flag.StringVar(&logLevel, "l", "info", "set log level (default: info)")
	flag.Usage = usage
	flag.Parse()

	if hf {
		flag.Usage()
		os.Exit(0)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `geotiler version: geotiler/v0.1.0
Usage: geotiler [-h] [-c filename] [-l logLevel]

Reprojects a geographic raster to EPSG:3857 and cuts it into colored PNG
tiles with a resumable tile manifest.
`)
	flag.PrintDefaults()
}
