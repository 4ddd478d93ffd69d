package main

import (
	"flag"
	"fmt"
	"os"

	"diamondhand/config"
	"diamondhand/db"
	"diamondhand/logs"
	"diamondhand/vm"
)

func main() {
	// 1. 解析命令行参数
	var (
		dataPath = flag.String("data", "", "database directory (overrides DIAMOND_DATABASE_PATH)")
		inMemory = flag.Bool("mem", false, "keep state in memory only")
		scenario = flag.String("scenario", "all", "scenario to run: native|fungible|all")
	)
	flag.Parse()

	// 2. 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *dataPath != "" {
		cfg.Database.Path = *dataPath
	}
	if *inMemory {
		cfg.Database.InMemory = true
	}
	level, err := logs.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	logs.SetLevel(level)
	logs.SetPrefix("vaultsim")

	// 3. 运行场景
	if err := run(cfg, *scenario); err != nil {
		logs.Error("scenario %s failed: %v", *scenario, err)
		os.Exit(1)
	}
	logs.Info("scenario %s finished", *scenario)
}

func run(cfg *config.Config, scenario string) error {
	var store vm.Store
	if cfg.Database.InMemory {
		store = vm.NewMemStore()
	} else {
		mgr, err := db.NewManager(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer func() {
			if err := mgr.Close(); err != nil {
				logs.Error("close database: %v", err)
			}
		}()
		store = mgr
	}

	sim, err := NewSimulator(cfg, store)
	if err != nil {
		return fmt.Errorf("build simulator: %w", err)
	}
	if err := sim.Run(scenario); err != nil {
		return err
	}
	sum, err := sim.Summarize()
	if err != nil {
		return fmt.Errorf("summarize state: %w", err)
	}
	logs.Info("[Sim] %d accounts, %d open vaults holding %d lamports", sum.Accounts, sum.OpenVaults, sum.VaultLamports)
	return nil
}
