package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/avstrong/stays/internal/app"
	"github.com/avstrong/stays/internal/config"
	"github.com/avstrong/stays/internal/logger"
)

func main() {
	configPath := pflag.String("config", "", "path to a YAML config file")
	envFile := pflag.String("env-file", ".env", "path to a .env file, ignored when missing")
	pflag.Parse()

	conf, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	base, err := logger.Configure(os.Stdout, conf.Log.Level, conf.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to configure logger: %v\n", err)
		os.Exit(1)
	}

	l := logger.New(base)

	var exitCode int

	if err := app.Run(conf, l); err != nil {
		l.LogErrorf("Failed to run app: %v", err.Error())

		exitCode = 1
	}

	os.Exit(exitCode)
}
