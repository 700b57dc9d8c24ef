package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"crossfold/config"
	"crossfold/crossval"
	"crossfold/data"
	"crossfold/ml"
	"crossfold/util"
)

var flags *pflag.FlagSet

var cfgPathFlag string

func init() {
	resetFlags()
}

// Explicitly define a method to facilitate tests
func resetFlags() {
	flags = &pflag.FlagSet{}
	flags.StringVarP(&cfgPathFlag, "config", "c", "./crossfold.yaml", "run config path")
}

func attachFlags(cmd *cobra.Command, names []string) {
	cmdFlags := cmd.Flags()
	for _, name := range names {
		if flag := flags.Lookup(name); flag != nil {
			cmdFlags.AddFlag(flag)
		} else {
			panic(fmt.Errorf("could not find flag %q to attach to command %q", name, cmd.Name()))
		}
	}
}

var mainCmd = &cobra.Command{Use: "crossfold"}

func main() {
	mainCmd.AddCommand(runCMD())

	if mainCmd.Execute() != nil {
		os.Exit(1)
	}
}

func runCMD() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run cross-validation",
		Long:  "train and evaluate the tile classifier across all folds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run()
		},
	}
	attachFlags(runCmd, []string{"config"})
	return runCmd
}

func run() error {
	cfg, err := config.Load(cfgPathFlag)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := util.NewSugaredLogger("crossfold", cfg.Log)
	defer log.Sync()

	var engine ml.Engine
	switch cfg.Engine {
	case "torch":
		engine = ml.NewTorchEngine()
	case "baseline":
		engine = ml.NewBaselineEngine()
	}
	log.Infof("engine: %s", cfg.Engine)

	train, err := data.LoadDataset(cfg.TrainRoot, cfg.Channels)
	if err != nil {
		return err
	}
	test, err := data.LoadDataset(cfg.TestRoot, cfg.Channels)
	if err != nil {
		return err
	}
	log.Infof("loaded %d train folds from %s, %d test folds from %s",
		len(train.FoldNames), cfg.TrainRoot, len(test.FoldNames), cfg.TestRoot)

	driver, err := crossval.NewDriver(engine, train, test, cfg.Training, cfg.Arch, cfg.Rand, log)
	if err != nil {
		return err
	}
	result, err := driver.Run()
	if err != nil {
		log.Errorf("run failed: %v", err)
		return err
	}

	for _, name := range result.FoldNames {
		fr := result.Folds[name]
		log.Infof("fold %-12s accuracy=%.4f train=%v test=%v",
			name, fr.Accuracy(), fr.TrainingTime, fr.TestingTime)
	}
	log.Infof("aggregate accuracy=%.4f samples=%d",
		result.Confusion.Accuracy(), result.Confusion.Total)
	return nil
}
