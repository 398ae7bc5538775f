package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var conf *Conf

type Conf struct {
	App struct {
		Version string `toml:"version"`
		Title   string `toml:"title"`
	} `toml:"app"`
	Input struct {
		Dataset string `toml:"dataset"`
	} `toml:"input"`
	Output struct {
		Directory      string `toml:"directory"`
		BaseURL        string `toml:"baseURL"`
		LogDir         string `toml:"logDir"`
		OutputTerminal bool   `toml:"outputTerminal"`
	} `toml:"output"`
	Tile struct {
		Size       int     `toml:"size"`
		Resolution float64 `toml:"resolution"`
	} `toml:"tile"`
	Scale struct {
		Name            string  `toml:"name"`
		MinSignificance float64 `toml:"minSignificance"`
		MinLatitude     float64 `toml:"minLatitude"`
	} `toml:"scale"`
	Task struct {
		Workers int `toml:"workers"`
	} `toml:"task"`
}

// InitConf loads the toml config file into the global conf
func InitConf(cfgFile string) {
	if cfgFile == "" {
		cfgFile = "conf.toml"
	}
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("config file(%s) not exist", cfgFile)
		os.Exit(1)
	}
	viper.SetConfigType("toml")
	viper.SetConfigFile(cfgFile)
	viper.AutomaticEnv() // read in environment variables that match
	err := viper.ReadInConfig()
	if err != nil {
		fmt.Printf("read config file(%s) error, details: %s", viper.ConfigFileUsed(), err)
	}
	viper.SetDefault("app.version", "v 0.1.0")
	viper.SetDefault("app.title", "GeoTiler")
	viper.SetDefault("output.directory", "tiles")
	viper.SetDefault("output.outputTerminal", true)
	viper.SetDefault("tile.size", 1024)
	viper.SetDefault("tile.resolution", 150.0)
	viper.SetDefault("scale.name", "auto")
	viper.SetDefault("scale.minSignificance", 0.001)
	viper.SetDefault("scale.minLatitude", -85.0)
	viper.SetDefault("task.workers", 1)

	err = viper.Unmarshal(&conf)
	if err != nil {
		panic("unable to parse config file")
	}
}
