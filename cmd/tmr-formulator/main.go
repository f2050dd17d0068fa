package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/iwvelando/tmr-formulator/internal/config"
	"github.com/iwvelando/tmr-formulator/internal/formulation"
	"github.com/iwvelando/tmr-formulator/internal/ration"
	"github.com/iwvelando/tmr-formulator/pkg/constants"
	"github.com/iwvelando/tmr-formulator/pkg/lp"
	"github.com/iwvelando/tmr-formulator/pkg/output"
	"github.com/iwvelando/tmr-formulator/pkg/validation"
	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	timeout := flag.Duration("timeout", 0, "solver timeout override, e.g. 30s")
	flag.Parse()

	// Load the config file to get logging configuration
	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		return 1
	}

	if err := validation.ValidateLogLevel(*logLevel); err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"invalid log level\", \"error\": \"%v\"}\n", err)
		return 1
	}

	// Initialize logging based on config and CLI override
	logger, err := config.NewLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Determine output format (CLI override takes precedence over config)
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Error(err.Error(), zap.String("op", "main"))
		return 1
	}

	if *timeout > 0 {
		conf.Solver.Timeout = *timeout
	}

	// Validate configuration and display any warnings
	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ingredients, _, err := conf.Ingredients()
	if err != nil {
		logger.Error("invalid feed library",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return 1
	}

	opts, err := conf.OptimizerOptions()
	if err != nil {
		logger.Error("invalid ration options",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return 1
	}

	optimizer := ration.New(logger, lp.NewSimplex(conf.Solver.Tolerance), opts)
	runner := formulation.NewRunner(logger, conf.Policy(), optimizer)

	report, err := runner.Run(context.Background(), formulation.Input{Animal: conf.AnimalInput(), Ingredients: ingredients})
	if err != nil {
		logger.Warn("formulation failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
		output.Failure(os.Stdout, err)
		return 2
	}

	if err := output.Write(os.Stdout, outputFormat, report); err != nil {
		logger.Error("failed to write output",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return 1
	}
	return 0
}
